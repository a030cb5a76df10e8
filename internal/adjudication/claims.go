package adjudication

import (
	"context"
	"errors"
	"strings"

	"github.com/opensource-finance/claimdesk/internal/domain"
	"github.com/opensource-finance/claimdesk/internal/repository"
)

// ClaimView is a stored claim as shown to adjusters: photo URLs plus the
// amounts and model output of its latest evaluation, if any.
type ClaimView struct {
	*domain.ClaimRecord
	DamagePhotos    []string `json:"damage_photos"`
	EstimatedAmount *float64 `json:"estimated_amount"`
	ClaimAmount     *float64 `json:"claim_amount"`
	DamageLabels    []string `json:"llm_damages"`
	Severity        *string  `json:"llm_severity"`
}

// GetClaim returns one claim view.
func (s *Service) GetClaim(ctx context.Context, claimID string) (*ClaimView, error) {
	rec, err := s.repo.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, rec)
}

// ListClaims returns every stored claim, latest loss first.
func (s *Service) ListClaims(ctx context.Context) ([]*ClaimView, error) {
	records, err := s.repo.ListClaims(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]*ClaimView, 0, len(records))
	for _, rec := range records {
		v, err := s.view(ctx, rec)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) view(ctx context.Context, rec *domain.ClaimRecord) (*ClaimView, error) {
	v := &ClaimView{
		ClaimRecord:  rec,
		DamagePhotos: make([]string, 0, len(rec.Photos)),
	}
	for _, p := range rec.Photos {
		v.DamagePhotos = append(v.DamagePhotos, s.opts.MediaBaseURL+strings.TrimLeft(p, "/"))
	}

	eval, err := s.repo.LatestEvaluation(ctx, rec.ClaimID)
	if errors.Is(err, repository.ErrNotFound) {
		return v, nil
	}
	if err != nil {
		return nil, err
	}

	estimated := eval.EstimatedAmount
	v.EstimatedAmount = &estimated
	v.ClaimAmount = eval.ClaimAmount
	v.DamageLabels = eval.DamageLabels
	if eval.Severity != "" {
		severity := eval.Severity
		v.Severity = &severity
	}
	return v, nil
}
