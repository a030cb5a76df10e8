// Package worker runs fraud detection and damage assessment off the event bus.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/opensource-finance/claimdesk/internal/adjudication"
	"github.com/opensource-finance/claimdesk/internal/domain"
	"github.com/opensource-finance/claimdesk/internal/metrics"
)

// ErrEmptyClaimID means a bus message carried no claim id.
var ErrEmptyClaimID = errors.New("message has no claim_id")

// ClaimProcessor is the subset of the adjudication service the worker drives.
type ClaimProcessor interface {
	RunFraudDetection(ctx context.Context, claimID string) (*domain.EvaluationResult, error)
	ApplyAssessment(ctx context.Context, claimID string, a domain.DamageAssessment) (*adjudication.AssessmentOutcome, error)
}

// Worker consumes claim events from the EventBus.
type Worker struct {
	bus       domain.EventBus
	processor ClaimProcessor

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// Topics to consume. Empty means the FNOL-saved and assessment-completed topics.
	Topics []string
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, processor ClaimProcessor) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       bus,
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes a handler for every configured topic.
func (w *Worker) Start(cfg Config) error {
	topics := cfg.Topics
	if len(topics) == 0 {
		topics = []string{domain.TopicFNOLSaved, domain.TopicAssessmentCompleted}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, topic := range topics {
		handler, err := w.handlerFor(topic)
		if err != nil {
			return err
		}
		sub, err := w.bus.Subscribe(w.ctx, topic, w.instrument(topic, handler))
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		w.subscriptions = append(w.subscriptions, sub)
	}

	slog.Info("workers started", "topics", topics)
	return nil
}

func (w *Worker) handlerFor(topic string) (domain.MessageHandler, error) {
	switch topic {
	case domain.TopicFNOLSaved:
		return w.handleFNOLSaved, nil
	case domain.TopicAssessmentCompleted:
		return w.handleAssessment, nil
	default:
		return nil, fmt.Errorf("worker: no handler for topic %q", topic)
	}
}

func (w *Worker) instrument(topic string, handler domain.MessageHandler) domain.MessageHandler {
	return func(ctx context.Context, msg *domain.Message) error {
		start := time.Now()
		err := handler(ctx, msg)

		result := "ok"
		if err != nil {
			result = "error"
			slog.Error("worker message failed",
				"topic", topic,
				"message_id", msg.ID,
				"error", err,
			)
		}
		metrics.WorkerMessagesTotal.WithLabelValues(topic, result).Inc()
		slog.Debug("worker message handled",
			"topic", topic,
			"message_id", msg.ID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}

// handleFNOLSaved runs fraud detection for a newly stored FNOL.
func (w *Worker) handleFNOLSaved(ctx context.Context, msg *domain.Message) error {
	var ev domain.FNOLSavedEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return fmt.Errorf("parse fnol saved event: %w", err)
	}
	claimID := strings.TrimSpace(ev.ClaimID)
	if claimID == "" {
		return ErrEmptyClaimID
	}

	_, err := w.processor.RunFraudDetection(ctx, claimID)
	return err
}

// handleAssessment applies damage model output delivered over the bus.
func (w *Worker) handleAssessment(ctx context.Context, msg *domain.Message) error {
	var a domain.DamageAssessment
	if err := json.Unmarshal(msg.Payload, &a); err != nil {
		return fmt.Errorf("parse damage assessment: %w", err)
	}
	claimID := strings.TrimSpace(a.ClaimID)
	if claimID == "" {
		return ErrEmptyClaimID
	}

	out, err := w.processor.ApplyAssessment(ctx, claimID, a)
	if err != nil {
		return err
	}
	if !out.Applied {
		slog.Warn("damage assessment ignored, claim not evaluated", "claim_id", claimID)
	}
	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
