package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"scrapeforge/internal/api/handlers"
	"scrapeforge/internal/api/routes"
	"scrapeforge/internal/breaker"
	"scrapeforge/internal/captcha"
	"scrapeforge/internal/cascade"
	"scrapeforge/internal/cascade/fetchers"
	"scrapeforge/internal/config"
	"scrapeforge/internal/container"
	"scrapeforge/internal/extractor"
	"scrapeforge/internal/extractor/vision"
	"scrapeforge/internal/logging"
	"scrapeforge/internal/orchestrator"
	"scrapeforge/internal/poison"
	"scrapeforge/internal/store"
	"scrapeforge/internal/store/memory"
	"scrapeforge/internal/store/rediscache"
	"scrapeforge/internal/worker"
	"scrapeforge/pkg/models"
	"scrapeforge/pkg/utils"
)

func main() {
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("starting ScrapeForge", map[string]interface{}{"port": cfg.Server.Port})

	di := container.New()
	di.RegisterInstance("config", cfg)
	di.RegisterSingleton("breaker_registry", func(c *container.Container) (interface{}, error) {
		cfgVal, err := c.Resolve("config")
		if err != nil {
			return nil, err
		}
		bc := cfgVal.(*config.Config).Breaker
		return breaker.NewRegistry(breaker.Config{
			FailureThreshold: bc.FailureThreshold,
			RecoveryTimeout:  bc.RecoveryTimeout,
			HalfOpenMaxCalls: bc.HalfOpenMaxCalls,
		}), nil
	})

	breakersVal, err := di.Resolve("breaker_registry")
	if err != nil {
		log.Fatalf("failed to build breaker registry: %v", err)
	}
	breakers := breakersVal.(*breaker.Registry)

	registry := fetchers.NewRegistry()
	registry.Register(fetchers.NewHTTPFetcher(cfg.Cascade.HTTPTimeout, cfg.Scraper.UserAgent, logger))

	if cfg.BrightData.APIKey != "" {
		registry.Register(fetchers.NewProxyFetcher(cfg.BrightData.BaseURL, cfg.BrightData.APIKey, cfg.BrightData.DatasetID, cfg.BrightData.Timeout, 3, logger))
	} else {
		logger.Info("brightdata api key not configured, proxy fetcher tier disabled")
	}

	var solver *captcha.Solver
	if cfg.Scraper.Captcha.EnableAutoSolve {
		solver = captcha.NewSolver(cfg.Scraper.Captcha.APIKey, cfg.Scraper.Captcha.Timeout, logger)
		if solver == nil {
			logger.Info("captcha auto-solve enabled but no api key configured, headless fetcher will not solve challenges")
		}
	}
	registry.Register(fetchers.NewHeadlessFetcher(cfg.Scraper.HeadlessMode, cfg.Scraper.UserAgent, solver, logger))

	if cfg.Firecrawl.APIKey != "" {
		firecrawlFetcher, err := fetchers.NewFirecrawlFetcher(cfg.Firecrawl.APIKey, cfg.Firecrawl.APIURL, cfg.Firecrawl.Formats, cfg.Firecrawl.MaxRetries, logger)
		if err != nil {
			logger.Error("failed to initialize firecrawl fetcher, tier disabled", map[string]interface{}{"error": err.Error()})
		} else {
			registry.Register(firecrawlFetcher)
		}
	} else {
		logger.Info("firecrawl api key not configured, firecrawl fetcher tier disabled")
	}

	detector := poison.NewDetector(cfg.Cascade.MinContentLength)
	engine := cascade.NewEngine(registry, breakers, detector, logger, 2, 4)

	visionExtractor := vision.NewExtractor("eng")
	pipeline := extractor.NewPipeline(visionExtractor)

	var screenshots worker.ScreenshotStore
	if cfg.DigitalOcean.Spaces.AccessKeyID != "" {
		spacesClient, err := utils.NewSpacesClient(cfg)
		if err != nil {
			logger.Error("failed to initialize spaces client, screenshot archiving disabled", map[string]interface{}{"error": err.Error()})
		} else {
			screenshots = spacesClient
		}
	} else {
		logger.Info("digitalocean spaces not configured, vision screenshots will not be archived")
	}

	scraper := worker.NewScraper(engine, registry, detector, pipeline, cfg.Cascade.Order, screenshots, logger)

	jobStore := memory.NewJobStore()
	urlStore := memory.NewURLStore()
	ruleStore := memory.NewRuleStore()
	resultStore := memory.NewResultStore()

	var settingsStore store.SettingsRepository = memory.NewSettingsStore()
	if cfg.Redis.URL != "" {
		redisClient := utils.NewRedisClient(cfg)
		if err := redisClient.Ping(context.Background()); err != nil {
			logger.Warn("redis unreachable, cascade settings cache disabled", map[string]interface{}{"error": err.Error()})
		} else {
			settingsStore = rediscache.NewSettingsCache(settingsStore, redisClient, logger)
			defer redisClient.Close()
		}
	}

	defaultCascade := models.DefaultCascadeConfig()
	defaultCascade.Order = cfg.Cascade.Order
	defaultCascade.MaxAttempts = cfg.Cascade.MaxAttempts

	di.RegisterInstance("orchestrator", orchestrator.New(jobStore, urlStore, ruleStore, resultStore, settingsStore, scraper, defaultCascade))
	orchVal, err := di.Resolve("orchestrator")
	if err != nil {
		log.Fatalf("failed to resolve orchestrator: %v", err)
	}
	orch := orchVal.(*orchestrator.Orchestrator)

	e := echo.New()
	e.HideBanner = true
	jobsHandler := handlers.NewJobsHandler(jobStore, urlStore, ruleStore, resultStore, orch)
	routes.SetupRoutes(e, cfg, jobsHandler)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("stopping active jobs...")
		orch.StopAll()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down http server", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("server shutdown complete")
	}()

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("listening", map[string]interface{}{"address": address})

	if err := e.Start(address); err != nil {
		logger.Info("http server stopped", map[string]interface{}{"reason": err.Error()})
	}
}
