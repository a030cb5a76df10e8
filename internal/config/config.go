// Package config loads claimdesk configuration from defaults, an optional
// config file and CLAIMDESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "CLAIMDESK"

// Load builds the configuration. The tier (CLAIMDESK_TIER or "tier" in the
// file) picks the defaults; the file and environment override them.
// An empty path searches for claimdesk.yaml in . and /etc/claimdesk.
func Load(path string) (*domain.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("claimdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/claimdesk/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	base := domain.DefaultConfig()
	switch tier := domain.Tier(strings.ToLower(v.GetString("tier"))); tier {
	case "", domain.TierCommunity:
	case domain.TierPro:
		base = domain.ProConfig()
	default:
		return nil, fmt.Errorf("unknown tier %q", tier)
	}
	setDefaults(v, base)

	cfg := &domain.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if v.GetBool("debug") {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables can override it.
func setDefaults(v *viper.Viper, c *domain.Config) {
	v.SetDefault("tier", string(c.Tier))
	v.SetDefault("async", c.Async)
	v.SetDefault("debug", false)

	v.SetDefault("server.host", c.Server.Host)
	v.SetDefault("server.port", c.Server.Port)
	v.SetDefault("server.read_timeout", c.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", c.Server.WriteTimeout)
	v.SetDefault("server.media_base_url", c.Server.MediaBaseURL)

	r := c.Repository
	v.SetDefault("repository.driver", r.Driver)
	v.SetDefault("repository.sqlite_path", r.SQLitePath)
	v.SetDefault("repository.postgres_host", r.PostgresHost)
	v.SetDefault("repository.postgres_port", r.PostgresPort)
	v.SetDefault("repository.postgres_user", r.PostgresUser)
	v.SetDefault("repository.postgres_password", r.PostgresPassword)
	v.SetDefault("repository.postgres_db", r.PostgresDB)
	v.SetDefault("repository.postgres_sslmode", r.PostgresSSLMode)
	v.SetDefault("repository.max_open_conns", r.MaxOpenConns)
	v.SetDefault("repository.max_idle_conns", r.MaxIdleConns)
	v.SetDefault("repository.conn_max_lifetime", r.ConnMaxLifetime)

	ca := c.Cache
	v.SetDefault("cache.type", ca.Type)
	v.SetDefault("cache.redis_addr", ca.RedisAddr)
	v.SetDefault("cache.redis_password", ca.RedisPassword)
	v.SetDefault("cache.redis_db", ca.RedisDB)
	v.SetDefault("cache.enable_two_phase", ca.EnableTwoPhase)
	v.SetDefault("cache.local_max_size", ca.LocalMaxSize)
	v.SetDefault("cache.local_ttl", ca.LocalTTL)
	v.SetDefault("cache.snapshot_ttl", ca.SnapshotTTL)

	b := c.EventBus
	v.SetDefault("eventbus.type", b.Type)
	v.SetDefault("eventbus.channel_buffer_size", b.ChannelBufferSize)
	v.SetDefault("eventbus.nats_url", b.NATSUrl)
	v.SetDefault("eventbus.nats_token", b.NATSToken)
	v.SetDefault("eventbus.nats_max_reconnects", b.NATSMaxReconnects)
	v.SetDefault("eventbus.nats_reconnect_wait", b.NATSReconnectWait)
	v.SetDefault("eventbus.nats_queue_group", b.NATSQueueGroup)

	v.SetDefault("assessment.endpoint", c.Assessment.Endpoint)
	v.SetDefault("assessment.api_key", c.Assessment.APIKey)
	v.SetDefault("assessment.timeout", c.Assessment.Timeout)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)
	v.SetDefault("tracing.enabled", c.Tracing.Enabled)
	v.SetDefault("tracing.service_name", c.Tracing.ServiceName)
}
