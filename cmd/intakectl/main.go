package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"prescription-chatbot/internal/cli"
	"prescription-chatbot/internal/config"
	"prescription-chatbot/internal/core"
	"prescription-chatbot/internal/db"
	"prescription-chatbot/internal/document"
	"prescription-chatbot/internal/llm"
	"prescription-chatbot/internal/logging"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.Environment, "warn")

	lex, err := core.LoadLexicon(cfg.LexiconPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := &cli.App{
		LLM: func() (llm.Client, error) {
			return llm.New(cfg.LLM, nil)
		},
		Normalizer: core.NewNormalizer(lex),
		Documents: func() (core.DocumentGenerator, error) {
			return document.NewGenerator(document.NewChromiumRenderer(cfg.ChromePath, cfg.RenderTimeout)), nil
		},
	}
	if cfg.DatabaseURL != "" {
		app.Listen = func(ctx context.Context) (<-chan string, error) {
			return db.NewNotifier(nil, cfg.DatabaseURL, cfg.NotifyChannel).Listen(ctx)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
