package main

import (
	"compress/gzip"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/nonplanar"
	"github.com/aretw0/nonplanar/internal/config"
	"github.com/aretw0/nonplanar/internal/presentation/tui"
	"github.com/aretw0/nonplanar/pkg/adapters/file"
	"github.com/aretw0/nonplanar/pkg/adapters/memory"
	"github.com/aretw0/nonplanar/pkg/adapters/redis"
	"github.com/aretw0/nonplanar/pkg/domain"
	"github.com/aretw0/nonplanar/pkg/observability"
	"github.com/aretw0/nonplanar/pkg/persistence/middleware"
	"github.com/aretw0/nonplanar/pkg/ports"
)

// Environment variables holding store encryption keys (base64, 32 bytes each).
const (
	envStoreKey          = "NONPLANAR_STORE_KEY"
	envStoreFallbackKeys = "NONPLANAR_STORE_FALLBACK_KEYS" // comma separated
)

// openStore selects the job store named by the settings and applies the
// configured middlewares. The returned closer is never nil.
func openStore(c config.Store) (ports.JobStore, func() error, error) {
	store, closer, err := baseStore(c)
	if err != nil || store == nil {
		return store, closer, err
	}
	var mws []middleware.Middleware
	if c.Compress {
		mws = append(mws, middleware.NewCompressionMiddleware(gzip.DefaultCompression))
	}
	if c.Encrypt {
		enc, err := encryptionConfig()
		if err != nil {
			closer()
			return nil, nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	return middleware.Wrap(store, mws...), closer, nil
}

func baseStore(c config.Store) (ports.JobStore, func() error, error) {
	noop := func() error { return nil }
	switch c.Kind {
	case "", "none":
		return nil, noop, nil
	case "memory":
		return memory.NewStore(), noop, nil
	case "file":
		return file.New(c.Path), noop, nil
	case "redis":
		addr := c.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		s := redis.New(addr, os.Getenv("NONPLANAR_REDIS_PASSWORD"), c.DB, redis.WithTTL(c.TTL))
		return s, s.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown store kind %q", c.Kind)
}

func encryptionConfig() (middleware.EncryptionConfig, error) {
	var cfg middleware.EncryptionConfig
	key, err := decodeKey(os.Getenv(envStoreKey))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", envStoreKey, err)
	}
	cfg.ActiveKey = key
	if fallback := os.Getenv(envStoreFallbackKeys); fallback != "" {
		for i, s := range strings.Split(fallback, ",") {
			k, err := decodeKey(strings.TrimSpace(s))
			if err != nil {
				return cfg, fmt.Errorf("%s[%d]: %w", envStoreFallbackKeys, i, err)
			}
			cfg.FallbackKeys = append(cfg.FallbackKeys, k)
		}
	}
	return cfg, nil
}

func decodeKey(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("encryption key is not set")
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key is not base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// newEngine builds an engine from the settings. A nil registerer disables metrics.
func newEngine(reg prometheus.Registerer) (*nonplanar.Engine, func() error, error) {
	store, closer, err := openStore(settings.Store)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.Default()
	opts := []nonplanar.Option{
		nonplanar.WithTransformConfig(settings.Transform),
		nonplanar.WithLogger(logger),
		nonplanar.WithLifecycleHooks(observability.Hooks(logger)),
	}
	if store != nil {
		opts = append(opts, nonplanar.WithStore(store))
	}
	if reg != nil {
		opts = append(opts, nonplanar.WithMetrics(observability.NewMetrics(reg)))
	}
	eng, err := nonplanar.New(opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return eng, closer, nil
}

// readInput reads a file, or stdin for "" and "-".
func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// writeOutput writes text to a file, or stdout for "" and "-".
func writeOutput(path, text string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(os.Stdout, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// printReport renders the job summary on stderr, styled when stderr is a terminal.
func printReport(job *domain.Job) {
	if job == nil {
		return
	}
	render := tui.NewPlainRenderer()
	if tui.IsTerminal(os.Stderr) {
		if r, err := tui.NewRenderer(0); err == nil {
			render = r
		}
	}
	out, err := render(tui.Report(job))
	if err != nil {
		slog.Warn("Report rendering failed", "error", err)
		return
	}
	fmt.Fprint(os.Stderr, out)
}
