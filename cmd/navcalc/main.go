package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/api"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/auth"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/ephemeris"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/metrics"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/navfile"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	serverCfg := loadServerConfig(logger)

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	store := ephemeris.NewStore(clockwork.NewRealClock())
	svc := ephemeris.NewService(store, loadWorkers(logger), logger)
	navCache := navfile.NewCache(navCacheDir(), navMaxFiles(logger))

	// Repopulate the catalog from the newest retained navigation file.
	if data, ts, err := navCache.LoadLatest(); err != nil {
		logger.Info("no retained navigation file, starting with empty catalog", "error", err)
	} else if catalog, err := svc.Load(string(data)); err != nil {
		logger.Warn("failed to reload retained navigation file", "error", err)
	} else {
		logger.Info("catalog reloaded from disk",
			"records", len(catalog.Records),
			"retained_at", ts.UTC().Format(time.RFC3339),
		)
	}

	srv := api.NewServer(serverCfg, logger, authCfg, svc, navCache)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background goroutine keeping the catalog age gauge current.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := store.AgeSeconds(); age >= 0 {
					metrics.SetCatalogAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", serverCfg.Addr, "auth_enabled", authCfg.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func logLevel() slog.Level {
	switch os.Getenv("NAVCALC_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadServerConfig(logger *slog.Logger) api.Config {
	cfg := api.Config{
		Addr:           ":8080",
		RateLimitRPS:   20,
		RateLimitBurst: 40,
	}

	if v := os.Getenv("NAVCALC_HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}

	if v := os.Getenv("NAVCALC_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid NAVCALC_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	if v := os.Getenv("NAVCALC_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			logger.Warn("invalid NAVCALC_RATE_LIMIT_RPS value, using default", "value", v, "default", cfg.RateLimitRPS)
		} else {
			cfg.RateLimitRPS = rps
		}
	}

	if v := os.Getenv("NAVCALC_RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid NAVCALC_RATE_LIMIT_BURST value, using default", "value", v, "default", cfg.RateLimitBurst)
		} else {
			cfg.RateLimitBurst = n
		}
	}

	logger.Info("server config",
		"addr", cfg.Addr,
		"trust_proxy", cfg.TrustProxy,
		"rate_limit_rps", cfg.RateLimitRPS,
		"rate_limit_burst", cfg.RateLimitBurst,
	)
	return cfg
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	if v := os.Getenv("NAVCALC_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.New("NAVCALC_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("NAVCALC_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("NAVCALC_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadWorkers(logger *slog.Logger) int {
	workers := runtime.NumCPU()
	if v := os.Getenv("NAVCALC_SNAPSHOT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid NAVCALC_SNAPSHOT_WORKERS value, using default", "value", v, "default", workers)
		} else {
			workers = n
		}
	}
	return workers
}

func navCacheDir() string {
	if v := os.Getenv("NAVCALC_NAV_CACHE_DIR"); v != "" {
		return v
	}
	return "/tmp/navcalc/nav"
}

func navMaxFiles(logger *slog.Logger) int {
	maxFiles := 3
	if v := os.Getenv("NAVCALC_NAV_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid NAVCALC_NAV_MAX_FILES value, using default", "value", v, "default", maxFiles)
		} else {
			maxFiles = n
		}
	}
	return maxFiles
}
