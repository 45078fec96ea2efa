package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/valkey-io/valkey-go"

	"github.com/dtcinsights/dtc-insights/internal/domain/auth"
	"github.com/dtcinsights/dtc-insights/internal/domain/history"
	"github.com/dtcinsights/dtc-insights/internal/domain/overview"
	"github.com/dtcinsights/dtc-insights/internal/infra/config"
	"github.com/dtcinsights/dtc-insights/internal/infra/dtcapi"
	"github.com/dtcinsights/dtc-insights/internal/infra/objectstore"
	"github.com/dtcinsights/dtc-insights/internal/infra/sessionstore"
	"github.com/dtcinsights/dtc-insights/internal/infra/userrepo"
	httpiface "github.com/dtcinsights/dtc-insights/internal/interface/http"
	"github.com/dtcinsights/dtc-insights/pkg/metrics"
	"github.com/dtcinsights/dtc-insights/pkg/util"
)

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideUpstreamMetrics(reg *prometheus.Registry) *metrics.Upstream {
	return metrics.NewUpstream(reg)
}

func provideHistoryMetrics(reg *prometheus.Registry) *metrics.History {
	return metrics.NewHistory(reg)
}

func provideDTCClient(cfg *config.Config, m *metrics.Upstream, logger *slog.Logger) (*dtcapi.Client, error) {
	attempts := 1
	if cfg.Upstream.Retry.Enabled {
		attempts = cfg.Upstream.Retry.MaxAttempts
	}
	return dtcapi.NewClient(dtcapi.Options{
		BaseURL:     cfg.Upstream.BaseURL,
		APIKey:      cfg.Upstream.APIKey,
		Timeout:     cfg.Upstream.Timeout,
		MaxAttempts: attempts,
		BaseBackoff: cfg.Upstream.Retry.BaseBackoff,
	}, m, logger)
}

func provideHistoryConfig(cfg *config.Config, logger *slog.Logger) history.Config {
	loc := util.LoadLocation(cfg.History.Timezone)
	if cfg.History.Timezone != "" && loc.String() != cfg.History.Timezone {
		logger.Warn("history timezone unavailable, using UTC", "timezone", cfg.History.Timezone)
	}
	return history.Config{
		PageSize:         cfg.History.PageSize,
		DefaultRangeDays: cfg.History.DefaultRangeDays,
		Location:         loc,
	}
}

func provideHistoryViews(cfg *config.Config, hcfg history.Config, fetcher history.Fetcher, m *metrics.History, logger *slog.Logger) *history.Views {
	return history.NewViews(hcfg, fetcher, m, cfg.History.ViewIdleTTL, logger)
}

func provideOverviewConfig(cfg *config.Config) overview.Config {
	return overview.Config{Days: cfg.Overview.Days, Limit: cfg.Overview.Limit}
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:          cfg.Auth.Secret,
		TokenTTL:        cfg.Auth.TokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		Google: auth.GoogleConfig{
			ClientID:             cfg.Auth.Google.ClientID,
			ClientSecret:         cfg.Auth.Google.ClientSecret,
			RedirectURL:          cfg.Auth.Google.RedirectURL,
			TokenEncryptionKey:   cfg.Auth.Google.TokenEncryptionKey,
			PostLoginRedirectURL: cfg.Auth.Google.PostLoginRedirectURL,
			AllowedDomain:        cfg.Auth.Google.AllowedDomain,
		},
	}
}

func provideHandlerConfig(cfg *config.Config, hcfg history.Config) httpiface.HandlerConfig {
	return httpiface.HandlerConfig{
		Location:             hcfg.Location,
		PostLoginRedirectURL: cfg.Auth.Google.PostLoginRedirectURL,
		MaxRangeDays:         cfg.History.MaxRangeDays,
	}
}

func provideUserRepository(cfg *config.Config, logger *slog.Logger) auth.Repository {
	fallback := userrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory user repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory user repository", "error", err)
		return fallback
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory user repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory user repository", "error", err)
		pool.Close()
		return fallback
	}
	repo := userrepo.NewPostgresRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		logger.Error("user schema migration failed, using memory user repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("postgres user repository enabled")
	return repo
}

func provideSessionStore(cfg *config.Config, logger *slog.Logger) auth.SessionStore {
	if !cfg.Valkey.Enabled {
		return sessionstore.NewMemoryStore()
	}
	opt, err := buildValkeyOptions(cfg.Valkey.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory session store", "error", err)
		return sessionstore.NewMemoryStore()
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory session store", "error", err)
		return sessionstore.NewMemoryStore()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory session store", "error", err)
		client.Close()
		return sessionstore.NewMemoryStore()
	}
	logger.Info("valkey session store enabled", "addr", cfg.Valkey.Addr)
	return sessionstore.NewValkeyStore(client, cfg.Valkey.Prefix)
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

// provideExportArchive returns nil when archiving is off.
func provideExportArchive(cfg *config.Config, logger *slog.Logger) history.ExportArchive {
	a := cfg.Export.Archive
	if !a.Enabled {
		return nil
	}
	archive, err := objectstore.NewR2Archive(objectstore.R2Options{
		Endpoint:  a.Endpoint,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
		Bucket:    a.Bucket,
		Region:    a.Region,
		Prefix:    a.Prefix,
		UseSSL:    a.UseSSL,
	}, logger)
	if err != nil {
		logger.Error("failed to init export archive, keeping exports in memory", "error", err)
		return objectstore.NewMemoryArchive(a.Prefix)
	}
	logger.Info("export archive enabled", "bucket", a.Bucket)
	return archive
}
