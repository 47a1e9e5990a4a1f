package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"scout/scout/agents/configs"
	"scout/scout/agents/core"
	agenttools "scout/scout/agents/tools"
	"scout/scout/config"
	"scout/scout/controllers"
	"scout/scout/middlewares"
	"scout/scout/routes"
	"scout/scout/services/llm"
	"scout/scout/services/ratelimit"
	"scout/scout/services/scraper"
	"scout/scout/services/search"
	"scout/scout/sources/psql"
	"scout/scout/sources/psql/dao"
	"scout/scout/sources/redisdb"
	"scout/scout/sources/storage"
	"scout/scout/utils/logging"
)

func main() {
	logging.InitLogger()
	cfg := config.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Error("database connection error", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	userDAO := dao.NewUserDAO(db.DB)
	chatDAO := dao.NewChatDAO(db.DB)

	counters, err := redisdb.NewCounterStore(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Error("redis connection error", zap.Error(err))
		os.Exit(1)
	}
	defer counters.Close()
	limiter := ratelimit.New(counters)

	var fetcher scraper.Fetcher = scraper.NewHTTPFetcher()
	if cfg.ScrapeEngine == "browser" {
		browser, err := scraper.NewBrowserFetcher()
		if err != nil {
			logging.ErrorLogger.Error("browser engine unavailable, using http fetcher", zap.Error(err))
		} else {
			defer browser.Close()
			fetcher = browser
		}
	}

	scrapeSvc := scraper.NewService(fetcher, cfg.ScrapeConcurrency)
	if cfg.SnapshotsOn {
		snapshots, err := storage.NewSnapshotClient(ctx, cfg)
		if err != nil {
			logging.ErrorLogger.Error("snapshot store unavailable", zap.Error(err))
		} else {
			scrapeSvc = scrapeSvc.WithSnapshots(snapshots)
		}
	}

	searchClient := search.NewClient(cfg.SerperAPIKey)
	llmClient := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey)

	agentCfg := configs.AgentConfig{
		Model:      cfg.LLMModel,
		StepBudget: cfg.AgentStepBudget,
	}.WithDefaults()
	registry := agenttools.NewRegistry(
		agenttools.NewSearchTool(searchClient, agentCfg.MaxSearchResults),
		agenttools.NewScrapeTool(scrapeSvc, agentCfg.MaxScrapeURLs),
	)
	loop := core.NewLoop(llmClient, registry, agentCfg)

	authCtrl := controllers.NewAuthController(userDAO, cfg)
	chatCtrl := controllers.NewChatController(chatDAO, loop)
	healthCtrl := controllers.NewHealthController()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewares.MetricsMiddleware)
	r.Use(middleware.Timeout(300 * time.Second))

	r.Mount("/auth", routes.AuthRoutes(authCtrl, cfg))
	r.Mount("/research", routes.ChatRoutes(chatCtrl, limiter, cfg))
	r.Mount("/health", routes.HealthRoutes(healthCtrl))
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		logging.AppLogger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
		return
	}
	logging.AppLogger.Info("server shutdown complete")
}
