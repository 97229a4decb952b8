package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	"shopapp/internal/config"
	"shopapp/internal/http/handlers"
	applog "shopapp/internal/log"
	"shopapp/internal/metrics"
	"shopapp/internal/repos"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		applog.L().Fatal("config.load", zap.Error(err))
	}

	lg, err := applog.New(cfg.Log)
	if err != nil {
		applog.L().Fatal("log.init", zap.Error(err))
	}
	applog.SetLogger(lg)
	defer func() { _ = lg.Sync() }()
	applog.Info(nil, "config.loaded", cfg.Fields())

	db, err := repos.OpenDB(cfg.Catalog.DSN)
	if err != nil {
		lg.Fatal("db.open", zap.Error(err))
	}
	defer db.Close()

	m := metrics.New()
	deps, err := handlers.NewDeps(db, cfg, m)
	if err != nil {
		lg.Fatal("deps.init", zap.Error(err))
	}

	// Templates & app
	engine := html.New(cfg.Web.Templates, ".html")
	engine.AddFuncMap(handlers.TemplateFuncs())
	engine.Reload(cfg.App.Env == "development")

	app := fiber.New(fiber.Config{
		Views:        engine,
		BodyLimit:    cfg.HTTP.BodyLimit,
		ErrorHandler: handlers.ErrorHandler,
	})

	handlers.Middleware(app, cfg)
	app.Static("/static", cfg.Web.Static)
	handlers.Register(app, deps)
	app.Use(handlers.NotFound)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go deps.Sessions.Run(ctx, cfg.Session.SweepInterval)

	// warm the catalog snapshot; a failure here is retried on first request
	go func() {
		if _, err := deps.Catalog.Products(ctx); err != nil {
			applog.Warn(nil, "catalog.warmup.fail", err, nil)
		}
	}()

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			applog.Error(nil, "server.shutdown", err, nil)
		}
	}()

	applog.Info(nil, "server.start", map[string]any{"port": cfg.App.Port})
	if err := app.Listen(":" + cfg.App.Port); err != nil {
		lg.Fatal("server.listen", zap.Error(err))
	}
	applog.Info(nil, "server.stop", nil)
}
