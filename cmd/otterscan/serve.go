package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/vorot93/otterscan/internal/assets"
	"github.com/vorot93/otterscan/internal/discovery"
	k8sdiscovery "github.com/vorot93/otterscan/internal/discovery/k8s"
	"github.com/vorot93/otterscan/internal/frontend"
	"github.com/vorot93/otterscan/internal/httpx"
	"github.com/vorot93/otterscan/internal/logging"
	explorermetrics "github.com/vorot93/otterscan/internal/metrics"
	"github.com/vorot93/otterscan/internal/ratelimit"
	"github.com/vorot93/otterscan/internal/runtimeconfig"
	"github.com/vorot93/otterscan/internal/serverutil"
	"github.com/vorot93/otterscan/pkg/config"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	overrides := map[string]*string{
		flagListenAddress: &cfg.ListenAddress,
		flagRPCURL:        &cfg.RPCURL,
		flagOpsAddress:    &cfg.OpsAddress,
		flagLogLevel:      &cfg.LogLevel,
		flagLogFormat:     &cfg.LogFormat,
	}
	for name, target := range overrides {
		if !flags.Changed(name) {
			continue
		}
		if value, err := flags.GetString(name); err == nil {
			*target = value
		}
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	app, chains, err := assets.Embedded()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := explorermetrics.New(registry)
	metrics.BundleEntries.WithLabelValues(app.Name()).Set(float64(app.Len()))
	metrics.BundleEntries.WithLabelValues(chains.Name()).Set(float64(chains.Len()))
	logger.Debug("asset bundles loaded", "app_entries", app.Len(), "chain_entries", chains.Len())

	resolver, err := buildResolver(cfg)
	if err != nil {
		return err
	}
	snapshot, err := discovery.ResolveOnce(ctx, resolver, cfg.Discovery.Timeout)
	if err != nil {
		metrics.DiscoveryErrors.Inc()
		return err
	}

	publicLn, err := serverutil.Listen(cfg.ListenAddress)
	if err != nil {
		return err
	}

	var opsLn net.Listener
	if cfg.OpsAddress != "" {
		opsLn, err = serverutil.Listen(cfg.OpsAddress)
		if err != nil {
			_ = publicLn.Close()
			return err
		}
	}

	doc := runtimeconfig.Compose(snapshot.RPCURL, advertisedAddress(publicLn.Addr()))
	handler, err := frontend.NewHandler(app, chains, doc, logger)
	var public http.Handler
	if err == nil {
		public, err = buildPublicHandler(cfg, handler, metrics, logger)
	}
	if err != nil {
		_ = publicLn.Close()
		if opsLn != nil {
			_ = opsLn.Close()
		}
		return err
	}

	var ready atomic.Bool
	group, groupCtx := errgroup.WithContext(ctx)

	publicServer := &http.Server{
		Handler:           public,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	group.Go(func() error {
		return serverutil.Run(groupCtx, serverutil.Config{
			Server:          publicServer,
			Listener:        publicLn,
			ShutdownTimeout: cfg.ShutdownTimeout,
		})
	})

	if opsLn != nil {
		opsServer := &http.Server{
			Handler:           buildOpsHandler(registry, &ready),
			ReadHeaderTimeout: 10 * time.Second,
		}
		group.Go(func() error {
			return serverutil.Run(groupCtx, serverutil.Config{
				Server:          opsServer,
				Listener:        opsLn,
				ShutdownTimeout: cfg.ShutdownTimeout,
			})
		})
		logger.Info("ops server started", "addr", opsLn.Addr().String())
	}

	ready.Store(true)
	logger.Info("Otterscan running", "url", doc.AssetsURLPrefix, "rpc_url", doc.ErigonURL)

	err = group.Wait()
	ready.Store(false)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func buildResolver(cfg *config.Config) (discovery.Resolver, error) {
	if cfg.Discovery.Enabled {
		return k8sdiscovery.NewInClusterResolver(cfg.Discovery.Namespace, cfg.Discovery.RPCSelector)
	}

	return discovery.NewStaticResolver(cfg.RPCURL)
}

// buildPublicHandler wraps the explorer handler, innermost first, with gzip,
// rate limiting, metrics, request ids and the access log. Compressed
// responses get a distinct ETag so caches never mix the two encodings.
func buildPublicHandler(cfg *config.Config, handler http.Handler, metrics *explorermetrics.Metrics, logger *slog.Logger) (http.Handler, error) {
	if cfg.Compression {
		gzipWrapper, err := gzhttp.NewWrapper(gzhttp.SuffixETag(frontend.GzipETagSuffix))
		if err != nil {
			return nil, fmt.Errorf("build gzip middleware: %w", err)
		}
		handler = gzipWrapper(handler)
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.RPS > 0 {
		limiter = ratelimit.New(ratelimit.Config{
			RPS:            cfg.RateLimit.RPS,
			Burst:          cfg.RateLimit.Burst,
			TrustForwarded: cfg.RateLimit.TrustForwarded,
		})
	}
	handler = limiter.Middleware(metrics, handler)
	handler = metrics.Middleware(handler)
	handler = httpx.WithRequestID(handler)
	handler = httpx.WithLogging(logger, handler)
	return handler, nil
}

func buildOpsHandler(registry *prometheus.Registry, ready *atomic.Bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}

// advertisedAddress formats the address the listener actually bound, so
// hostnames resolve to their IP and ":0" advertises the real port.
func advertisedAddress(bound net.Addr) string {
	host, port, err := net.SplitHostPort(bound.String())
	if err != nil {
		return bound.String()
	}
	return net.JoinHostPort(host, port)
}
