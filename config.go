package resolver

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultWorkers    = 6
	defaultTaskTimeout = 180 * time.Second
)

// Config holds the environment-derived tunables spec.md §6 names:
// PAKET_RESOLVER_WORKERS and PAKET_RESOLVER_TASK_TIMEOUT. Grounded on the
// teacher's (deleted, CLI-only) flags.go/context.go env-driven option idiom,
// carried here as the ambient configuration layer this expansion adds.
type Config struct {
	Workers     int
	TaskTimeout time.Duration
}

// LoadConfig reads the environment once, at Resolve() entry. Invalid values
// are logged as warnings via the injected logger and replaced with defaults,
// per §6's "Invalid values emit a warning and fall back to defaults."
func LoadConfig(log logrus.FieldLogger) Config {
	cfg := Config{Workers: defaultWorkers, TaskTimeout: defaultTaskTimeout}

	if raw := os.Getenv("PAKET_RESOLVER_WORKERS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			log.WithError(errors.Wrapf(err, "parse PAKET_RESOLVER_WORKERS=%q", raw)).
				Warn("invalid worker count, defaulting")
		} else {
			cfg.Workers = n
		}
	}

	if raw := os.Getenv("PAKET_RESOLVER_TASK_TIMEOUT"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			log.WithError(errors.Wrapf(err, "parse PAKET_RESOLVER_TASK_TIMEOUT=%q", raw)).
				Warn("invalid task timeout, defaulting")
		} else {
			cfg.TaskTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}

type ctxKey int

const (
	ctxKeyConfig ctxKey = iota
	ctxKeyFetcher
	ctxKeyLister
	ctxKeyLogger
)

func withConfig(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, ctxKeyConfig, cfg)
}

func configFromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(ctxKeyConfig).(Config)
	if !ok {
		return nil
	}
	return &cfg
}

func withFetcher(ctx context.Context, f DetailsFetcher) context.Context {
	return context.WithValue(ctx, ctxKeyFetcher, f)
}

func fetcherFromContext(ctx context.Context) DetailsFetcher {
	return ctx.Value(ctxKeyFetcher).(DetailsFetcher)
}

func withLister(ctx context.Context, l VersionLister) context.Context {
	return context.WithValue(ctx, ctxKeyLister, l)
}

func listerFromContext(ctx context.Context) VersionLister {
	return ctx.Value(ctxKeyLister).(VersionLister)
}

func withLogger(ctx context.Context, log logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, log)
}

func loggerFromContext(ctx context.Context) logrus.FieldLogger {
	log, ok := ctx.Value(ctxKeyLogger).(logrus.FieldLogger)
	if !ok {
		return logrus.StandardLogger()
	}
	return log
}
