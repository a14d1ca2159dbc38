package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goa.design/clue/log"
	"golang.org/x/time/rate"

	"github.com/emrenamli69/regnum-presentation/internal/adapter/chat"
	"github.com/emrenamli69/regnum-presentation/internal/adapter/crm"
	"github.com/emrenamli69/regnum-presentation/internal/adapter/httpretry"
	"github.com/emrenamli69/regnum-presentation/internal/config"
	"github.com/emrenamli69/regnum-presentation/internal/repository"
	"github.com/emrenamli69/regnum-presentation/internal/service"
	handler "github.com/emrenamli69/regnum-presentation/internal/transport/http"
	"github.com/emrenamli69/regnum-presentation/internal/transport/ws"
	"github.com/emrenamli69/regnum-presentation/policy"
)

func main() {
	cfg, err := config.Load()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	if cfg != nil {
		switch cfg.LogFormat {
		case "json":
			format = log.FormatJSON
		case "text":
			format = log.FormatText
		}
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("load config: %w", err))
	}
	if cfg.LogDebug {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	log.Print(ctx,
		log.KV{K: "msg", V: "starting assistant gateway"},
		log.KV{K: "env", V: cfg.Env},
		log.KV{K: "http-port", V: cfg.HTTPPort},
		log.KV{K: "database", V: cfg.DatabaseURL},
		log.KV{K: "agents", V: len(cfg.Agents)},
	)

	// Store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("initialize store: %w", err))
	}
	defer db.Close()

	// Outbound policy
	var policyEngine *policy.Engine
	if cfg.PolicyFile != "" {
		policyEngine, err = policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	} else {
		policyEngine, err = policy.NewEngine(ctx, policy.DefaultPolicy)
	}
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("initialize policy engine: %w", err))
	}

	// Upstream clients
	var retryOpts []httpretry.Option
	if cfg.CRMRateLimit > 0 {
		retryOpts = append(retryOpts, httpretry.WithLimiter(rate.NewLimiter(rate.Limit(cfg.CRMRateLimit), 1)))
	}
	crmClient := crm.NewClient(httpretry.NewClient(retryOpts...), crm.Options{
		Timeout:       cfg.CRMTimeout,
		MaxAttempts:   cfg.CRMMaxAttempts,
		BackoffBase:   cfg.CRMBackoff,
		HealthTimeout: cfg.HealthTimeout,
	})
	chatClient := chat.NewChatClient(ctx, cfg.ChatTimeout)

	svc := service.New(db, chatClient, crmClient, cfg, policyEngine)

	// Websocket fan-out
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	hub := ws.NewHub(runCtx)
	go hub.Run(runCtx)
	svc.SetPublisher(hub)
	wsServer := ws.NewServer(ws.Config{
		APIKey:         cfg.WSAPIKey,
		PingInterval:   cfg.WSPingInterval,
		WriteTimeout:   cfg.WSWriteTimeout,
		ReadTimeout:    cfg.WSReadTimeout,
		MaxMessageSize: cfg.WSMaxMessageSize,
	}, hub, svc)

	server := handler.NewServer(svc, cfg.IsProduction(), wsServer)

	errc := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	log.Printf(ctx, "HTTP server listening on :%d", cfg.HTTPPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf(ctx, "shutting down (%v)", sig)
	case err := <-errc:
		log.Error(ctx, err, log.KV{K: "msg", V: "HTTP server failed"})
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "graceful shutdown failed"})
	}

	log.Printf(ctx, "assistant gateway stopped")
}
