package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/klinikai/cmd/mainconfig"
	"github.com/wolfman30/klinikai/internal/api/router"
	appconfig "github.com/wolfman30/klinikai/internal/config"
	"github.com/wolfman30/klinikai/internal/observability/metrics"
)

// setupMetrics registers every collector on a private registry and returns
// the /metrics handler alongside them.
func setupMetrics() (http.Handler, *metrics.BookingMetrics, *metrics.AssistantMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	return handler, metrics.NewBookingMetrics(reg), metrics.NewAssistantMetrics(reg)
}

// loadAWSConfig returns nil when nothing in cfg talks to AWS.
func loadAWSConfig(ctx context.Context, cfg *appconfig.Config) (*aws.Config, error) {
	if !cfg.UsesAWS() {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &awsCfg, nil
}

func healthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]router.Check {
	checks := map[string]router.Check{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

// newServer sizes the write timeout past the chat deadline so a slow LLM
// turn still gets its 500 body out.
func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	writeTimeout := 15 * time.Second
	if cfg.ChatTimeout+5*time.Second > writeTimeout {
		writeTimeout = cfg.ChatTimeout + 5*time.Second
	}
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
