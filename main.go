package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/varsilias/ease/internal/api"
	"github.com/varsilias/ease/internal/buildinfo"
	"github.com/varsilias/ease/internal/chat"
	"github.com/varsilias/ease/internal/config"
	"github.com/varsilias/ease/internal/gemini"
	"github.com/varsilias/ease/internal/logging"
	"github.com/varsilias/ease/internal/metrics"
	"github.com/varsilias/ease/internal/middleware"
	"github.com/varsilias/ease/internal/models"
	"github.com/varsilias/ease/internal/session"
	"github.com/varsilias/ease/internal/speech"
	"github.com/varsilias/ease/internal/tutor"
	"github.com/varsilias/ease/internal/ui"
	"github.com/varsilias/ease/web"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.JSON)
	logger.Info("build", "version", buildinfo.Version, "commit", buildinfo.Commit, "built_at", buildinfo.BuiltAt)
	logger.Info("server is listening", "port", cfg.Server.Addr, "engine", cfg.Gemini.Engine, "model", cfg.Gemini.Model)

	rec := metrics.New()

	var engine chat.Engine
	switch cfg.Gemini.Engine {
	case "echo":
		logger.Warn("echo engine enabled; answers are not generated")
		engine = chat.NewEchoEngine(30 * time.Millisecond)
	default:
		engine = chat.NewGeminiEngine(gemini.NewClient(cfg.Gemini.BaseURL, cfg.Gemini.Timeout, logger))
	}
	modelsMgr := models.NewStaticManager(cfg.Gemini.Models)
	tts := speech.NewClient(cfg.Speech.BaseURL, cfg.Speech.Timeout, logger)

	sessionStore := session.NewMemoryStore(cfg.Session.Capacity, cfg.Session.TTL)
	sessions := session.NewManager(sessionStore, session.CookieOptions{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.Secure,
		MaxAge: cfg.Session.TTL,
	})

	chatCtrl := chat.NewController(logger, engine, modelsMgr, modelsMgr.Default(), rec)
	tutorSvc := tutor.New(logger, engine, tts, tutor.Options{
		Model:    modelsMgr.Default(),
		Language: cfg.Speech.Language,
		Metrics:  rec,
	})

	uih, err := ui.New(logger, web.FS, ui.Deps{
		Chat:      chatCtrl,
		Tutor:     tutorSvc,
		Models:    modelsMgr,
		Sessions:  sessions,
		MaxUpload: cfg.Upload.MaxBytes,
	})
	if err != nil {
		logger.Error("ui init", "err", err)
		os.Exit(1)
	}
	h := api.NewHandlers(logger, chatCtrl, tutorSvc, modelsMgr, cfg.Upload.MaxBytes)

	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		logger.Error("static assets", "err", err)
		os.Exit(1)
	}

	mux := chi.NewRouter()
	mux.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.Handle("/metrics", rec.Handler())

	api.RegisterRoutes(mux, h, sessions.Middleware)
	mux.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)
		ui.RegisterRoutes(r, uih)
	})

	handler := middleware.Chain(mux, logger, rec, cfg.Upload.MaxBytes+1<<20)

	server := http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Addr),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	go func() { errChan <- server.ListenAndServe() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	case sig := <-sigChan:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	} else {
		logger.Info("server stopped")
	}
}
