package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/claimdesk/internal/adjudication"
	"github.com/opensource-finance/claimdesk/internal/domain"
)

var seedFile string

// SeedFile is the YAML layout accepted by claimctl seed.
type SeedFile struct {
	Rules []struct {
		RuleType        string `yaml:"rule_type"`
		RuleGroup       string `yaml:"rule_group"`
		RuleDescription string `yaml:"rule_description"`
		RuleExpression  string `yaml:"rule_expression"`
		IsActive        *bool  `yaml:"is_active"`
	} `yaml:"rules"`

	DamageCodes []struct {
		DamageType         string  `yaml:"damage_type"`
		SeverityPercentage float64 `yaml:"severity_percentage"`
		IsActive           *bool   `yaml:"is_active"`
	} `yaml:"damage_codes"`

	ClaimTypes []struct {
		ClaimTypeName  string  `yaml:"claim_type_name"`
		RiskPercentage float64 `yaml:"risk_percentage"`
		IsActive       *bool   `yaml:"is_active"`
	} `yaml:"claim_types"`

	Pricing []struct {
		ConfigKey   string `yaml:"config_key"`
		ConfigValue string `yaml:"config_value"`
		Description string `yaml:"description"`
		IsActive    *bool  `yaml:"is_active"`
	} `yaml:"pricing"`
}

// SeedStats counts rows written per table.
type SeedStats struct {
	Created int
	Updated int
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load rules, damage codes, claim types and pricing from YAML",
	Long: `Seed upserts master data from a YAML file. Rows are matched on their
natural key (rule type and group, damage type, claim type name, config key)
so running seed twice does not duplicate anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := loadSeedFile(seedFile)
		if err != nil {
			return err
		}

		svc, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := applySeed(cmd.Context(), svc, seed)
		if err != nil {
			return err
		}
		color.Green("Seeded %s: %d created, %d updated", seedFile, stats.Created, stats.Updated)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "configs/seed.yaml", "seed YAML file")
}

func loadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("error parsing seed file: %w", err)
	}
	return &seed, nil
}

func active(b *bool) bool {
	return b == nil || *b
}

func naturalKey(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}

func applySeed(ctx context.Context, svc *adjudication.Service, seed *SeedFile) (SeedStats, error) {
	var stats SeedStats
	count := func(id int64) {
		if id == 0 {
			stats.Created++
		} else {
			stats.Updated++
		}
	}

	existingRules, err := svc.ListRules(ctx)
	if err != nil {
		return stats, err
	}
	ruleIDs := make(map[string]int64, len(existingRules))
	for _, r := range existingRules {
		ruleIDs[naturalKey(r.RuleType, r.RuleGroup)] = r.ID
	}
	for _, s := range seed.Rules {
		r := &domain.RuleDefinition{
			ID:              ruleIDs[naturalKey(s.RuleType, s.RuleGroup)],
			RuleType:        s.RuleType,
			RuleGroup:       s.RuleGroup,
			RuleDescription: s.RuleDescription,
			RuleExpression:  s.RuleExpression,
			IsActive:        active(s.IsActive),
		}
		count(r.ID)
		if err := svc.SaveRule(ctx, r); err != nil {
			return stats, fmt.Errorf("rule %q: %w", s.RuleType, err)
		}
	}

	existingDamage, err := svc.ListDamageTypes(ctx)
	if err != nil {
		return stats, err
	}
	damageIDs := make(map[string]int64, len(existingDamage))
	for _, d := range existingDamage {
		damageIDs[naturalKey(d.DamageType)] = d.ID
	}
	for _, s := range seed.DamageCodes {
		d := &domain.DamageTypeSeverity{
			ID:                 damageIDs[naturalKey(s.DamageType)],
			DamageType:         s.DamageType,
			SeverityPercentage: s.SeverityPercentage,
			IsActive:           active(s.IsActive),
		}
		count(d.ID)
		if err := svc.SaveDamageType(ctx, d); err != nil {
			return stats, fmt.Errorf("damage code %q: %w", s.DamageType, err)
		}
	}

	existingTypes, err := svc.ListClaimTypes(ctx)
	if err != nil {
		return stats, err
	}
	typeIDs := make(map[string]int64, len(existingTypes))
	for _, c := range existingTypes {
		typeIDs[naturalKey(c.ClaimTypeName)] = c.ID
	}
	for _, s := range seed.ClaimTypes {
		c := &domain.ClaimTypeThreshold{
			ID:             typeIDs[naturalKey(s.ClaimTypeName)],
			ClaimTypeName:  s.ClaimTypeName,
			RiskPercentage: s.RiskPercentage,
			IsActive:       active(s.IsActive),
		}
		count(c.ID)
		if err := svc.SaveClaimType(ctx, c); err != nil {
			return stats, fmt.Errorf("claim type %q: %w", s.ClaimTypeName, err)
		}
	}

	existingPricing, err := svc.ListPricing(ctx)
	if err != nil {
		return stats, err
	}
	pricingIDs := make(map[string]int64, len(existingPricing))
	for _, p := range existingPricing {
		pricingIDs[naturalKey(p.ConfigKey)] = p.ID
	}
	for _, s := range seed.Pricing {
		p := &domain.PricingParameter{
			ID:          pricingIDs[naturalKey(s.ConfigKey)],
			ConfigKey:   s.ConfigKey,
			ConfigValue: s.ConfigValue,
			Description: s.Description,
			IsActive:    active(s.IsActive),
		}
		count(p.ID)
		if err := svc.SavePricing(ctx, p); err != nil {
			return stats, fmt.Errorf("pricing %q: %w", s.ConfigKey, err)
		}
	}

	return stats, nil
}
