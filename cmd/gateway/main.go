package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medcore/hospital-gateway/internal/core/service"
	"github.com/medcore/hospital-gateway/internal/gateway"
	"github.com/medcore/hospital-gateway/internal/infrastructure/http/handlers"
	"github.com/medcore/hospital-gateway/internal/pkg/config"
	"github.com/medcore/hospital-gateway/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.Init(logger.Options{Service: "gateway"})
		l.Fatal().Err(err).Msg("load configuration")
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction(), Service: "gateway"})

	bindings, err := cfg.Bindings()
	if err != nil {
		log.Fatal().Err(err).Msg("build route bindings")
	}
	routes, err := gateway.NewRouteTable(bindings)
	if err != nil {
		log.Fatal().Err(err).Msg("build route table")
	}

	codec := service.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL, nil)
	policy := service.NewAccessPolicy(service.DefaultAccessRules(cfg.Edge.AnonymousReadResources))
	forwarder := gateway.NewForwarder(routes, cfg.Edge.UpstreamTimeout, nil, logger.Component("forwarder"))
	dispatcher := gateway.NewDispatcher(codec, policy, routes, forwarder, logger.Component("dispatcher"))

	checks := make(map[string]handlers.Check, len(bindings))
	for _, b := range bindings {
		checks[b.Name] = handlers.TCPCheck(dialAddr(b.Target))
	}

	e := gateway.NewRouter(dispatcher, gateway.RouterConfig{
		AllowedOrigins: cfg.Edge.CORSAllowedOrigins,
		RateLimitRPS:   cfg.Edge.RateLimitRPS,
		ReadyChecks:    checks,
	}, log)

	for _, r := range routes.Routes() {
		log.Info().Str("route", r.Name).Str("prefix", r.Prefix).Str("target", r.Target.String()).Msg("route registered")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("gateway listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// dialAddr returns host:port for u, filling in the scheme's default port.
func dialAddr(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
