package adjudication

import (
	"context"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

// Master data writes go straight to the repository and then drop the cached
// rule snapshot so the next evaluation sees the change.

// ListRules returns every claim rule.
func (s *Service) ListRules(ctx context.Context) ([]*domain.RuleDefinition, error) {
	return s.repo.ListRules(ctx)
}

// GetRule returns one claim rule.
func (s *Service) GetRule(ctx context.Context, id int64) (*domain.RuleDefinition, error) {
	return s.repo.GetRule(ctx, id)
}

// SaveRule creates or updates a claim rule.
func (s *Service) SaveRule(ctx context.Context, rule *domain.RuleDefinition) error {
	return s.invalidateAfter(ctx, s.repo.SaveRule(ctx, rule))
}

// DeleteRule removes a claim rule.
func (s *Service) DeleteRule(ctx context.Context, id int64) error {
	return s.invalidateAfter(ctx, s.repo.DeleteRule(ctx, id))
}

// ListDamageTypes returns every damage code.
func (s *Service) ListDamageTypes(ctx context.Context) ([]*domain.DamageTypeSeverity, error) {
	return s.repo.ListDamageTypes(ctx)
}

// GetDamageType returns one damage code.
func (s *Service) GetDamageType(ctx context.Context, id int64) (*domain.DamageTypeSeverity, error) {
	return s.repo.GetDamageType(ctx, id)
}

// SaveDamageType creates or updates a damage code.
func (s *Service) SaveDamageType(ctx context.Context, d *domain.DamageTypeSeverity) error {
	return s.invalidateAfter(ctx, s.repo.SaveDamageType(ctx, d))
}

// DeleteDamageType removes a damage code.
func (s *Service) DeleteDamageType(ctx context.Context, id int64) error {
	return s.invalidateAfter(ctx, s.repo.DeleteDamageType(ctx, id))
}

// ListClaimTypes returns every claim tier threshold.
func (s *Service) ListClaimTypes(ctx context.Context) ([]*domain.ClaimTypeThreshold, error) {
	return s.repo.ListClaimTypes(ctx)
}

// GetClaimType returns one claim tier threshold.
func (s *Service) GetClaimType(ctx context.Context, id int64) (*domain.ClaimTypeThreshold, error) {
	return s.repo.GetClaimType(ctx, id)
}

// SaveClaimType creates or updates a claim tier threshold.
func (s *Service) SaveClaimType(ctx context.Context, c *domain.ClaimTypeThreshold) error {
	return s.invalidateAfter(ctx, s.repo.SaveClaimType(ctx, c))
}

// DeleteClaimType removes a claim tier threshold.
func (s *Service) DeleteClaimType(ctx context.Context, id int64) error {
	return s.invalidateAfter(ctx, s.repo.DeleteClaimType(ctx, id))
}

// ListPricing returns every pricing parameter.
func (s *Service) ListPricing(ctx context.Context) ([]*domain.PricingParameter, error) {
	return s.repo.ListPricing(ctx)
}

// GetPricing returns one pricing parameter.
func (s *Service) GetPricing(ctx context.Context, id int64) (*domain.PricingParameter, error) {
	return s.repo.GetPricing(ctx, id)
}

// SavePricing creates or updates a pricing parameter.
func (s *Service) SavePricing(ctx context.Context, p *domain.PricingParameter) error {
	return s.invalidateAfter(ctx, s.repo.SavePricing(ctx, p))
}

// DeletePricing removes a pricing parameter.
func (s *Service) DeletePricing(ctx context.Context, id int64) error {
	return s.invalidateAfter(ctx, s.repo.DeletePricing(ctx, id))
}

func (s *Service) invalidateAfter(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	s.rules.Invalidate(ctx)
	return nil
}
