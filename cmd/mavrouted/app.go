package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mavroute/pkg/config"
	"mavroute/pkg/dialect"
	"mavroute/pkg/endpoint"
	"mavroute/pkg/endpoint/serial"
	"mavroute/pkg/endpoint/tcp"
	"mavroute/pkg/endpoint/udp"
	"mavroute/pkg/observability"
	"mavroute/pkg/router"
	"mavroute/pkg/routing"
	"mavroute/pkg/stats"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	zap.L().Info("mavrouted started", zap.String("app", cfg.AppName))

	d, err := dialect.Load(cfg.Dialect)
	if err != nil {
		zap.L().Error("failed to load dialect", zap.String("path", cfg.Dialect), zap.Error(err))
		return 1
	}
	zap.L().Info("dialect loaded",
		zap.String("path", cfg.Dialect),
		zap.Int("messages", d.Len()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table := routing.NewTable(time.Duration(cfg.Routing.TTLSeconds) * time.Second)
	reg := stats.NewRegistry()
	rtr := router.New(d, table, reg)

	boff := endpoint.DefaultBackoff()
	if cfg.Net.DialBackoffInitialMS > 0 {
		boff.Initial = time.Duration(cfg.Net.DialBackoffInitialMS) * time.Millisecond
	}
	if cfg.Net.DialBackoffMaxMS > 0 {
		boff.Max = time.Duration(cfg.Net.DialBackoffMaxMS) * time.Millisecond
	}

	for _, ec := range cfg.Endpoints {
		ep, err := buildEndpoint(ec, boff)
		if err != nil {
			zap.L().Error("invalid endpoint", zap.String("endpoint", ec.Name), zap.Error(err))
			return 1
		}
		if err := rtr.Add(ep); err != nil {
			zap.L().Error("failed to register endpoint", zap.Error(err))
			return 1
		}
	}

	if cfg.Stats.Listen != "" {
		if _, err := stats.Serve(ctx, cfg.Stats.Listen, reg); err != nil {
			zap.L().Error("failed to start stats listener",
				zap.String("listen", cfg.Stats.Listen), zap.Error(err))
			return 1
		}
	}

	if err := rtr.Start(ctx); err != nil {
		zap.L().Error("failed to bring up endpoints", zap.Error(err))
		return 1
	}

	zap.L().Info("router is running; press Ctrl+C to exit")
	rtr.Run(ctx)
	return 0
}

// buildEndpoint maps one validated config entry onto a dialer.
func buildEndpoint(ec config.EndpointConfig, boff endpoint.Backoff) (*endpoint.Endpoint, error) {
	overflow, err := endpoint.ParseOverflowPolicy(ec.Overflow)
	if err != nil {
		return nil, err
	}

	var dialer endpoint.Dialer
	switch ec.Kind {
	case "udp":
		dialer = &udp.Dialer{Address: ec.Address, Server: ec.Mode == "server"}
	case "tcp":
		dialer = &tcp.Dialer{Address: ec.Address, Server: ec.Mode == "server"}
	case "serial":
		dialer = &serial.Dialer{Device: ec.Device, Baud: ec.Baud}
	}

	return endpoint.New(endpoint.Config{
		Name:       ec.Name,
		QueueDepth: ec.QueueDepth,
		Overflow:   overflow,
		Backoff:    boff,
	}, dialer), nil
}
