// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/jesrav/jesktop/internal/api"
	"github.com/jesrav/jesktop/internal/embedder"
	"github.com/jesrav/jesktop/internal/ingest"
	"github.com/jesrav/jesktop/internal/mcpserver"
	"github.com/jesrav/jesktop/internal/parser"
	"github.com/jesrav/jesktop/internal/retrieval"
	"github.com/jesrav/jesktop/internal/sse"
	"github.com/jesrav/jesktop/internal/storage"
	"github.com/jesrav/jesktop/internal/vectordb"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func buildEmbedder(app *application) (embedder.Embedder, error) {
	if app.embedder != nil {
		return app.embedder, nil
	}
	cfg := app.config.Embedding

	var emb embedder.Embedder
	switch cfg.Provider {
	case ProviderOpenAI:
		oa, err := embedder.NewOpenAI(cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		emb = oa
	default:
		emb = embedder.NewHash(cfg.Dimension)
	}
	if cfg.MaxRetries > 0 {
		emb = embedder.WithRetry(emb, cfg.MaxRetries, 500*time.Millisecond)
	}
	return emb, nil
}

// RunIngest walks the notes corpus, builds the vector database, and writes
// the artifact. A running server watching the artifact picks it up
// automatically.
func RunIngest(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	store, err := storage.NewFS(cfg.Notes.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	p, err := parser.New(cfg.Notes.PatternSources())
	if err != nil {
		return fmt.Errorf("init parser: %w", err)
	}
	emb, err := buildEmbedder(app)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}

	pipeline := ingest.New(store, p, emb, ingest.Config{
		AttachmentFolders: cfg.Notes.AttachmentFolders,
		ChunkSize:         cfg.Chunking.ChunkSize,
		ChunkOverlap:      cfg.Chunking.ChunkOverlap,
		Concurrency:       cfg.Embedding.Concurrency,
		BatchSize:         cfg.Embedding.BatchSize,
	}, logger)

	db, sum, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := vectordb.Save(db, cfg.Artifact.Path); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	logger.Info("artifact written",
		slog.String("path", cfg.Artifact.Path),
		slog.Int("notes", sum.Notes),
		slog.Int("chunks", sum.Chunks),
		slog.Int("images", sum.Images))
	return nil
}

// RunMCP loads the artifact and serves the MCP tools over stdio.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// MCP talks JSON-RPC on stdout; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := vectordb.Load(cfg.Artifact.Path)
	if err != nil {
		return fmt.Errorf("load artifact: %w", err)
	}
	emb, err := buildEmbedder(app)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}
	svc := retrieval.NewService(retrieval.NewEngine(db), emb)

	logger.Info("MCP server starting on stdio",
		slog.String("artifact", cfg.Artifact.Path),
		slog.Int("notes", len(db.Notes)))
	return mcpserver.New(svc).ServeStdio()
}

// Run starts the retrieval server: load the artifact, serve the HTTP API,
// and hot-reload when the artifact file is replaced.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("artifact_path", cfg.Artifact.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := vectordb.Load(cfg.Artifact.Path)
	if err != nil {
		return fmt.Errorf("load artifact: %w", err)
	}
	logger.Info("artifact loaded",
		slog.String("model_info", db.Meta.ModelInfo),
		slog.Int("notes", len(db.Notes)),
		slog.Int("chunks", len(db.Records)))

	emb, err := buildEmbedder(app)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}
	if db.Meta.ModelInfo != "" && db.Meta.ModelInfo != emb.ModelInfo() {
		logger.Warn("artifact was built with a different embedding model",
			slog.String("artifact_model", db.Meta.ModelInfo),
			slog.String("configured_model", emb.ModelInfo()))
	}

	engine := retrieval.NewEngine(db)
	svc := retrieval.NewService(engine, emb)

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api (SSE endpoint shares the auth group).
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the artifact and hot-swap the engine when it is replaced.
	g.Go(func() error {
		return vectordb.Watch(gCtx, cfg.Artifact.Path, logger, func() {
			fresh, err := vectordb.Load(cfg.Artifact.Path)
			if err != nil {
				logger.Error("artifact reload failed", slog.String("error", err.Error()))
				return
			}
			engine.Reload(fresh)
			broker.PublishReload(cfg.Artifact.Path, fresh.Meta.ModelInfo, len(fresh.Notes), len(fresh.Records))
			logger.Info("artifact reloaded",
				slog.Int("notes", len(fresh.Notes)),
				slog.Int("chunks", len(fresh.Records)))
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
