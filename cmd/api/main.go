package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cypherspark/notify-gateway/internal/config"
	"github.com/Cypherspark/notify-gateway/internal/core"
	httpapi "github.com/Cypherspark/notify-gateway/internal/http"
	"github.com/Cypherspark/notify-gateway/internal/redisstore"
	"github.com/Cypherspark/notify-gateway/internal/sender"
	"github.com/Cypherspark/notify-gateway/internal/worker"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg := config.FromEnv()

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Store ----
	// A failed ping is logged, not fatal: the process keeps serving and the
	// first request that touches the store surfaces the outage.
	gw, err := redisstore.Connect(rootCtx, redisstore.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("store not reachable at startup")
	}
	defer func() { _ = gw.Close() }()

	// ---- Sender ----
	var snd core.Sender
	switch cfg.SenderMode {
	case "live":
		snd = sender.NewLive(
			sender.NewTelegramClient(cfg.TelegramToken),
			sender.NewEmailClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom),
			cfg.EmailTo,
		)
	default:
		snd = sender.NewSimulated(cfg.TelegramDelay, cfg.EmailDelay, cfg.SimulatedFailPct)
	}

	// ---- Worker pool ----
	pool := worker.NewPool(log, worker.Options{
		QueueSize:   cfg.QueueSize,
		Concurrency: cfg.Concurrency,
		RateQPS:     cfg.RateQPS,
		RateBurst:   cfg.RateBurst,
		TaskTimeout: cfg.SendTimeout,
	})

	svc := core.NewService(gw, snd, pool, log, cfg.StatusTTL)

	// ---- HTTP server ----
	srv := httpapi.NewServer(svc, gw, log)
	server := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	// Let queued deliveries finish before the process exits.
	pool.Close()
	cancel()
}
