package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"prescription-chatbot/internal/config"
	"prescription-chatbot/internal/core"
	"prescription-chatbot/internal/document"
	httpserver "prescription-chatbot/internal/http"
	"prescription-chatbot/internal/llm"
	"prescription-chatbot/internal/logging"
	"prescription-chatbot/internal/metrics"
	"prescription-chatbot/internal/telemetry"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		logrus.Fatalf("failed to set up tracing: %v", err)
	}

	m := metrics.New()

	llmClient, err := llm.New(cfg.LLM, m)
	if err != nil {
		logrus.Fatalf("failed to construct llm client: %v", err)
	}
	if !llmClient.Available(ctx) {
		logrus.WithField("model", llmClient.Name()).Warn("inference backend not reachable yet, turn endpoints will answer 503")
	}

	lex, err := core.LoadLexicon(cfg.LexiconPath)
	if err != nil {
		logrus.Fatalf("failed to load lexicon: %v", err)
	}
	norm := core.NewNormalizer(lex)
	if cfg.LexiconPath != "" {
		if err := core.WatchLexicon(ctx, cfg.LexiconPath, norm, 500*time.Millisecond); err != nil {
			logrus.WithError(err).Warn("lexicon hot reload disabled")
		}
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("failed to open %s session store: %v", cfg.StoreBackend, err)
	}
	defer st.Close()

	docs := document.NewGenerator(document.NewChromiumRenderer(cfg.ChromePath, cfg.RenderTimeout))
	intake := core.NewIntakeService(st.Store, llmClient, norm, docs)
	intake.Stats = m
	intake.Notifier = st.Notifier

	sweeper, err := newSweeper(st, cfg, m)
	if err != nil {
		logrus.Fatalf("failed to create session sweeper: %v", err)
	}
	if sweeper != nil {
		sweeper.Start()
		defer func() {
			if err := sweeper.Stop(); err != nil {
				logrus.WithError(err).Warn("sweeper shutdown")
			}
		}()
	}

	srv := httpserver.NewServer(intake, m)
	httpSrv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: srv.Handler(httpserver.Options{
			CORSOrigin:     cfg.CORSOrigin,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":  httpSrv.Addr,
			"store": cfg.StoreBackend,
			"model": llmClient.Name(),
		}).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("http shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("tracer shutdown")
	}
}
