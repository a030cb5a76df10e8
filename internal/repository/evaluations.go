package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

type evaluationRow struct {
	ID               int64           `db:"id"`
	ClaimID          string          `db:"claim_id"`
	Decision         string          `db:"decision"`
	ClaimStatus      string          `db:"claim_status"`
	Reason           string          `db:"reason"`
	FraudRuleResults string          `db:"fraud_rule_results"`
	DamageConfidence int             `db:"damage_confidence"`
	FraudScore       string          `db:"fraud_score"`
	EvaluationScore  float64         `db:"evaluation_score"`
	ThresholdValue   int             `db:"threshold_value"`
	ClaimType        sql.NullString  `db:"claim_type"`
	EstimatedAmount  float64         `db:"estimated_amount"`
	ClaimAmount      sql.NullFloat64 `db:"claim_amount"`
	DamageLabels     sql.NullString  `db:"llm_damages"`
	Severity         string          `db:"llm_severity"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func newEvaluationRow(rec *domain.EvaluationRecord) (*evaluationRow, error) {
	results := rec.FraudRuleResults
	if results == nil {
		results = []domain.FraudRuleResult{}
	}
	encoded, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}

	row := &evaluationRow{
		ID:               rec.ID,
		ClaimID:          rec.ClaimID,
		Decision:         rec.Decision,
		ClaimStatus:      rec.ClaimStatus,
		Reason:           rec.Reason,
		FraudRuleResults: string(encoded),
		DamageConfidence: rec.DamageConfidence,
		FraudScore:       rec.FraudScore,
		EvaluationScore:  rec.EvaluationScore,
		ThresholdValue:   rec.ThresholdValue,
		EstimatedAmount:  rec.EstimatedAmount,
		Severity:         rec.Severity,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
	if rec.ClaimType != nil {
		row.ClaimType = sql.NullString{String: *rec.ClaimType, Valid: true}
	}
	if rec.ClaimAmount != nil {
		row.ClaimAmount = sql.NullFloat64{Float64: *rec.ClaimAmount, Valid: true}
	}
	if rec.DamageLabels != nil {
		labels, err := json.Marshal(rec.DamageLabels)
		if err != nil {
			return nil, err
		}
		row.DamageLabels = sql.NullString{String: string(labels), Valid: true}
	}
	return row, nil
}

func (row *evaluationRow) record() (*domain.EvaluationRecord, error) {
	rec := &domain.EvaluationRecord{
		ID:               row.ID,
		ClaimID:          row.ClaimID,
		Decision:         row.Decision,
		ClaimStatus:      row.ClaimStatus,
		Reason:           row.Reason,
		DamageConfidence: row.DamageConfidence,
		FraudScore:       row.FraudScore,
		EvaluationScore:  row.EvaluationScore,
		ThresholdValue:   row.ThresholdValue,
		EstimatedAmount:  row.EstimatedAmount,
		Severity:         row.Severity,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.FraudRuleResults), &rec.FraudRuleResults); err != nil {
		return nil, fmt.Errorf("evaluation %d: corrupt fraud_rule_results: %w", row.ID, err)
	}
	if row.ClaimType.Valid {
		claimType := row.ClaimType.String
		rec.ClaimType = &claimType
	}
	if row.ClaimAmount.Valid {
		amount := row.ClaimAmount.Float64
		rec.ClaimAmount = &amount
	}
	if row.DamageLabels.Valid && row.DamageLabels.String != "" {
		if err := json.Unmarshal([]byte(row.DamageLabels.String), &rec.DamageLabels); err != nil {
			return nil, fmt.Errorf("evaluation %d: corrupt llm_damages: %w", row.ID, err)
		}
	}
	return rec, nil
}

// SaveEvaluation inserts an evaluation record and moves the claim to statusID
// in one transaction. The new record id is returned and set on rec.
func (r *SQLRepository) SaveEvaluation(ctx context.Context, rec *domain.EvaluationRecord, statusID int64) (int64, error) {
	if rec.ClaimID == "" {
		return 0, fmt.Errorf("%w: claim_id is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	row, err := newEvaluationRow(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to encode evaluation: %w", err)
	}

	query := `
		INSERT INTO claim_evaluations (
			claim_id, decision, claim_status, reason, fraud_rule_results,
			damage_confidence, fraud_score, evaluation_score, threshold_value,
			claim_type, estimated_amount, claim_amount, llm_damages, llm_severity,
			created_at, updated_at
		) VALUES (
			:claim_id, :decision, :claim_status, :reason, :fraud_rule_results,
			:damage_confidence, :fraud_score, :evaluation_score, :threshold_value,
			:claim_type, :estimated_amount, :claim_amount, :llm_damages, :llm_severity,
			:created_at, :updated_at
		) RETURNING id
	`

	err = r.withTx(ctx, func(tx *sqlx.Tx) error {
		id, err := insertReturningID(ctx, tx, query, row)
		if err != nil {
			return err
		}
		rec.ID = id
		return setClaimStatus(ctx, tx, rec.ClaimID, statusID)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save evaluation for %s: %w", rec.ClaimID, err)
	}
	return rec.ID, nil
}

// UpdateEvaluation rewrites an existing evaluation record and moves the claim
// to statusID in one transaction.
func (r *SQLRepository) UpdateEvaluation(ctx context.Context, rec *domain.EvaluationRecord, statusID int64) error {
	if rec.ID == 0 {
		return fmt.Errorf("%w: evaluation id is required", ErrInvalidInput)
	}

	rec.UpdatedAt = time.Now().UTC()
	row, err := newEvaluationRow(rec)
	if err != nil {
		return fmt.Errorf("failed to encode evaluation: %w", err)
	}

	query := `
		UPDATE claim_evaluations SET
			decision = :decision, claim_status = :claim_status, reason = :reason,
			fraud_rule_results = :fraud_rule_results, damage_confidence = :damage_confidence,
			fraud_score = :fraud_score, evaluation_score = :evaluation_score,
			threshold_value = :threshold_value, claim_type = :claim_type,
			estimated_amount = :estimated_amount, claim_amount = :claim_amount,
			llm_damages = :llm_damages, llm_severity = :llm_severity, updated_at = :updated_at
		WHERE id = :id
	`

	err = r.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.NamedExecContext(ctx, query, row)
		if err != nil {
			return err
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		return setClaimStatus(ctx, tx, rec.ClaimID, statusID)
	})
	if err != nil {
		return fmt.Errorf("failed to update evaluation %d: %w", rec.ID, err)
	}
	return nil
}

// LatestEvaluation returns the most recent evaluation for a claim.
func (r *SQLRepository) LatestEvaluation(ctx context.Context, claimID string) (*domain.EvaluationRecord, error) {
	query := `
		SELECT * FROM claim_evaluations
		WHERE claim_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var row evaluationRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), claimID); err != nil {
		return nil, notFound(err)
	}
	return row.record()
}

// insertReturningID runs a named INSERT ... RETURNING id statement.
func insertReturningID(ctx context.Context, ex sqlx.ExtContext, query string, arg any) (int64, error) {
	bound, args, err := ex.BindNamed(query, arg)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := ex.QueryRowxContext(ctx, bound, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
