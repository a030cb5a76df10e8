// Package domain defines the core interfaces and types for claimdesk.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// FNOL intake
	SaveClaim(ctx context.Context, fnol *FNOL, userID string) (created bool, err error)
	GetClaim(ctx context.Context, claimID string) (*ClaimRecord, error)
	ListClaims(ctx context.Context) ([]*ClaimRecord, error)
	ListEvaluatedClaims(ctx context.Context) ([]*ClaimRecord, error)
	HasPhoto(ctx context.Context, claimID string) (bool, error)
	SetClaimStatus(ctx context.Context, claimID string, statusID int64) error
	ListClaimStatuses(ctx context.Context) ([]*ClaimStatus, error)

	// Evaluations. Both writes move the claim status in the same transaction.
	SaveEvaluation(ctx context.Context, rec *EvaluationRecord, statusID int64) (int64, error)
	UpdateEvaluation(ctx context.Context, rec *EvaluationRecord, statusID int64) error
	LatestEvaluation(ctx context.Context, claimID string) (*EvaluationRecord, error)

	// Rule tables read as one consistent set.
	LoadRuleTables(ctx context.Context) (*RuleTables, error)
	// RuleTablesVersion changes whenever any rule table row changes.
	RuleTablesVersion(ctx context.Context) (string, error)

	// Master data administration
	ListRules(ctx context.Context) ([]*RuleDefinition, error)
	GetRule(ctx context.Context, id int64) (*RuleDefinition, error)
	SaveRule(ctx context.Context, rule *RuleDefinition) error
	DeleteRule(ctx context.Context, id int64) error

	ListDamageTypes(ctx context.Context) ([]*DamageTypeSeverity, error)
	GetDamageType(ctx context.Context, id int64) (*DamageTypeSeverity, error)
	SaveDamageType(ctx context.Context, d *DamageTypeSeverity) error
	DeleteDamageType(ctx context.Context, id int64) error

	ListClaimTypes(ctx context.Context) ([]*ClaimTypeThreshold, error)
	GetClaimType(ctx context.Context, id int64) (*ClaimTypeThreshold, error)
	SaveClaimType(ctx context.Context, c *ClaimTypeThreshold) error
	DeleteClaimType(ctx context.Context, id int64) error

	ListPricing(ctx context.Context) ([]*PricingParameter, error)
	GetPricing(ctx context.Context, id int64) (*PricingParameter, error)
	SavePricing(ctx context.Context, p *PricingParameter) error
	DeletePricing(ctx context.Context, id int64) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RuleTables is every row of the four configurable tables, active or not.
type RuleTables struct {
	Rules       []RuleDefinition     `json:"rules"`
	DamageTypes []DamageTypeSeverity `json:"damage_types"`
	ClaimTypes  []ClaimTypeThreshold `json:"claim_types"`
	Pricing     []PricingParameter   `json:"pricing"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `mapstructure:"driver"`

	// SQLite specific
	SQLitePath string `mapstructure:"sqlite_path"`

	// PostgreSQL specific
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	// Connection pool settings
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}
