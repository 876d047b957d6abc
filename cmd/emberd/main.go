// Command emberd runs a standalone ember HTTP server: a thin flag/env
// wrapper around pkg/ember/httpserver that echoes the request method and
// path, useful for smoke-testing the reactor/socket/http11 stack end to
// end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mpilman/ember/pkg/ember/http11"
	"github.com/mpilman/ember/pkg/ember/httpserver"
	"github.com/mpilman/ember/pkg/ember/socket"
)

func main() {
	cfg := parseConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.logLevel,
	}))
	slog.SetDefault(logger)

	srv := httpserver.New(httpserver.Config{
		Handler:     echoHandler,
		IdleTimeout: cfg.idleTimeout,
		Tuning: &socket.TuningConfig{
			NoDelay:    true,
			RecvBuffer: 256 * 1024,
			SendBuffer: 256 * 1024,
			KeepAlive:  true,
			ReusePort:  cfg.reusePort,
		},
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Listen(ctx, cfg.host, cfg.port); err != nil {
		logger.Error("listen failed", "error", err)
		os.Exit(1)
	}
	logger.Info("listening", "addrs", srv.Addrs())

	<-ctx.Done()
	logger.Info("shutting down")
	if err := srv.Close(); err != nil {
		logger.Error("close failed", "error", err)
	}
}

func echoHandler(w *http11.Response, r *http11.IncomingMessage) {
	body := []byte(fmt.Sprintf("%s %s\n", r.MethodName, r.URL))
	w.SetContentLength(int64(len(body)))
	_ = w.Header.Add([]byte("Content-Type"), []byte("text/plain; charset=utf-8"))
	_ = w.End(body)
}

type config struct {
	host        string
	port        int
	idleTimeout time.Duration
	reusePort   bool
	logLevel    slog.Level
}

// parseConfig layers flags over environment variables: EMBER_HOST,
// EMBER_PORT, EMBER_IDLE_TIMEOUT, EMBER_REUSE_PORT, EMBER_LOG_LEVEL provide
// defaults that flags can still override, so the same binary runs
// unmodified under a process manager or directly from a shell.
func parseConfig() config {
	cfg := config{
		host:        envOr("EMBER_HOST", ""),
		port:        envOrInt("EMBER_PORT", 8080),
		idleTimeout: envOrDuration("EMBER_IDLE_TIMEOUT", http11.KeepAliveIdleTimeout),
		reusePort:   envOrBool("EMBER_REUSE_PORT", false),
		logLevel:    envOrLevel("EMBER_LOG_LEVEL", slog.LevelInfo),
	}

	flag.StringVar(&cfg.host, "host", cfg.host, "address to bind (empty = all interfaces)")
	flag.IntVar(&cfg.port, "port", cfg.port, "port to listen on")
	flag.DurationVar(&cfg.idleTimeout, "idle-timeout", cfg.idleTimeout, "keep-alive idle timeout")
	flag.BoolVar(&cfg.reusePort, "reuse-port", cfg.reusePort, "enable SO_REUSEPORT (linux/darwin only)")
	flag.Parse()

	return cfg
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrLevel(key string, def slog.Level) slog.Level {
	if v, ok := os.LookupEnv(key); ok {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			return lvl
		}
	}
	return def
}
