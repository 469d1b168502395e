package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/repo"
	"github.com/Chative-core-poc-v1/dialogue/internal/calculator"
	"github.com/Chative-core-poc-v1/dialogue/internal/core"
	"github.com/Chative-core-poc-v1/dialogue/internal/metrics"
	"github.com/Chative-core-poc-v1/dialogue/internal/outlets"
	"github.com/Chative-core-poc-v1/dialogue/internal/products"
	logx "github.com/Chative-core-poc-v1/dialogue/pkg/logger"
	pkgredis "github.com/Chative-core-poc-v1/dialogue/pkg/redis"
	"github.com/Chative-core-poc-v1/dialogue/pkg/sqlite"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis   pkgredis.Config
	Outlets sqlite.Config

	Session    model.SessionConfig
	Engine     model.EngineConfig
	Products   model.ProductsConfig
	Calculator model.CalculatorConfig
	Gemini     model.GeminiConfig
	Metrics    model.MetricsConfig
}

func loadConfig() (AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Could not load .env file: %v\n", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("process environment config: %w", err)
	}
	return cfg, nil
}

// app holds the wired engine and everything that must be closed with it.
type app struct {
	cfg      AppConfig
	engine   *graph.Engine
	sessions *conversations.SessionManager
	closers  []func() error
}

func newApp(ctx context.Context, cfg AppConfig) (_ *app, err error) {
	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Level:       cfg.LogLevel,
	})

	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	store, err := a.sessionStore(ctx)
	if err != nil {
		return nil, err
	}
	a.sessions = conversations.NewSessionManager(store, cfg.Session)

	db, err := cfg.Outlets.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open outlets database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	outletStore, err := outlets.NewStore(ctx, db)
	if err != nil {
		return nil, err
	}

	calc, err := newCalculator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gateway, err := tools.NewGateway(ctx,
		tools.NewCalculatorTool(calc),
		tools.NewOutletsTool(outletStore),
		tools.NewProductsTool(products.DefaultCatalog(), cfg.Products.TopK),
	)
	if err != nil {
		return nil, fmt.Errorf("build tool gateway: %w", err)
	}

	a.engine, err = graph.NewEngine(ctx, graph.Config{
		Classifier: parsers.DefaultIntentClassifier(),
		Tools:      gateway,
		Sessions:   a.sessions,
		Engine:     cfg.Engine,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Str("session_backend", cfg.Session.Backend).
		Str("calc_provider", cfg.Calculator.Provider).
		Strs("tools", gateway.Names()).
		Msg("engine ready")
	return a, nil
}

func (a *app) sessionStore(ctx context.Context) (model.SessionStore, error) {
	switch a.cfg.Session.Backend {
	case "memory":
		return repo.NewMemorySessionStore(), nil
	case "", "sqlite":
		dbCfg := sqlite.Config{Path: a.cfg.Session.DBPath, BusyTimeout: a.cfg.Outlets.BusyTimeout}
		db, err := dbCfg.Open(ctx)
		if err != nil {
			return nil, fmt.Errorf("open sessions database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		store, err := repo.NewSQLiteSessionStore(ctx, db)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		rdb, err := a.cfg.Redis.New()
		if err != nil {
			return nil, fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		logx.Debug().Msg("Connected to Redis successfully")
		return repo.NewRedisSessionStore(rdb, a.cfg.Session.TTL), nil
	}
	return nil, fmt.Errorf("unknown session backend %q", a.cfg.Session.Backend)
}

func newCalculator(ctx context.Context, cfg AppConfig) (*calculator.Calculator, error) {
	opts := []calculator.Option{calculator.WithTimeout(cfg.Calculator.Timeout)}

	switch cfg.Calculator.Provider {
	case "", "none":
	case "mathjs":
		client := &http.Client{Timeout: cfg.Calculator.Timeout}
		opts = append(opts, calculator.WithProvider(calculator.NewMathJSProvider(cfg.Calculator.ProviderURL, client)))
	case "gemini":
		chat, err := calculator.NewGeminiChatModel(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		opts = append(opts, calculator.WithProvider(calculator.NewGeminiProvider(chat, cfg.Gemini.Model)))
	default:
		return nil, fmt.Errorf("unknown calculation provider %q", cfg.Calculator.Provider)
	}
	return calculator.New(opts...), nil
}

// serveMetrics starts the metrics listener when an address is configured.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Addr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, a.cfg.Metrics.Addr); err != nil {
			logx.Error().Err(err).Str("addr", a.cfg.Metrics.Addr).Msg("metrics listener stopped")
		}
	}()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logx.Warn().Err(err).Msg("close resource")
		}
	}
	a.closers = nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
