package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"xau-signal-bot/internal/engine"
	"xau-signal-bot/internal/engine/engineobs"
	"xau-signal-bot/internal/fetcher"
	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/llm"
	"xau-signal-bot/internal/llm/claude"
	"xau-signal-bot/internal/llm/llmobs"
	"xau-signal-bot/internal/llm/openai"
	"xau-signal-bot/internal/logger"
	"xau-signal-bot/internal/marketdata/binance"
	"xau-signal-bot/internal/marketdata/kite"
	"xau-signal-bot/internal/marketdata/marketobs"
	"xau-signal-bot/internal/marketdata/static"
	"xau-signal-bot/internal/marketdata/yahoo"
	"xau-signal-bot/internal/metrics"
	"xau-signal-bot/internal/runlog"
	"xau-signal-bot/internal/signallog"
	"xau-signal-bot/internal/store"
	"xau-signal-bot/internal/trace"
)

// initializeSystem loads .env and sets up the logger.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// initializeTracing starts the tracer once the run's identity is known.
func initializeTracing(ctx context.Context, cfg *store.Config) {
	err := trace.Init(trace.WithRun(trace.RunInfo{
		Symbol:       cfg.Data.Symbol,
		Interval:     cfg.Data.Interval,
		DataProvider: cfg.Data.Provider,
		LLMProvider:  cfg.LLM.Provider,
		Model:        cfg.LLM.Model,
	}))
	if err != nil {
		logger.Warn(ctx, "Failed to initialize tracer", "error", err)
	}
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	logger.Info(ctx, "Config loaded",
		"path", path,
		"provider", cfg.Data.Provider,
		"symbol", cfg.Data.Symbol,
		"interval", cfg.Data.Interval,
		"llm_provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"schema", cfg.LLM.Schema,
	)
	return cfg, nil
}

func compressOldRuns(ctx context.Context, j *runlog.Journal, retentionDays int) {
	n, err := j.CompressOlder(retentionDays)
	if err != nil {
		logger.Warn(ctx, "Failed to compress old run journals", "dir", j.Dir(), "error", err)
		return
	}
	if n > 0 {
		logger.Debug(ctx, "Compressed old run journals", "count", n)
	}
}

// initializeProvider builds the configured candle source with observability.
func initializeProvider(ctx context.Context, cfg *store.Config) interfaces.CandleProvider {
	var provider interfaces.CandleProvider

	switch cfg.Data.Provider {
	case "BINANCE":
		provider = binance.New(binance.Params{
			APIKey:    os.Getenv("BINANCE_API_KEY"),
			SecretKey: os.Getenv("BINANCE_SECRET_KEY"),
			BaseURL:   cfg.Data.Binance.BaseURL,
		})
	case "KITE":
		provider = kite.New(kite.Params{
			APIKey:          os.Getenv("KITE_API_KEY"),
			AccessToken:     os.Getenv("KITE_ACCESS_TOKEN"),
			InstrumentToken: cfg.Data.Kite.InstrumentToken,
			Continuous:      cfg.Data.Kite.Continuous,
		})
	case "STATIC":
		logger.Warn(ctx, "Using STATIC synthetic candles - signals are not market based")
		provider = static.New()
	default:
		provider = yahoo.New(yahoo.Params{
			BaseURL: cfg.Data.Yahoo.BaseURL,
			Timeout: cfg.Data.Yahoo.Timeout,
		})
	}

	return marketobs.Wrap(cfg.Data.Provider, provider)
}

// initializeRequester builds the chat backend and the signal requester with
// observability.
func initializeRequester(ctx context.Context, cfg *store.Config) interfaces.SignalRequester {
	key := cfg.APIKey()
	if key == "" {
		logger.Warn(ctx, "LLM API key not set", "env", cfg.LLM.APIKeyEnv)
	}

	var completer interfaces.Completer
	switch cfg.LLM.Provider {
	case "CLAUDE":
		completer = claude.New(claude.Params{
			APIKey:      key,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		})
	default:
		// DeepSeek speaks the OpenAI chat completions protocol.
		completer = openai.New(openai.Params{
			APIKey:      key,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		})
	}

	requester := llm.NewRequester(llm.Params{
		Symbol:   cfg.Data.Symbol,
		Interval: cfg.Data.Interval,
		Extended: cfg.Extended(),
	}, completer)

	return llmobs.Wrap(cfg.LLM.Provider, requester)
}

func initializeSignalLog(cfg *store.Config) interfaces.SignalLog {
	return signallog.New(signallog.Params{
		Path:        cfg.SignalLog.Path,
		MaxRows:     cfg.SignalLog.MaxRows,
		Extended:    cfg.Extended(),
		LockTimeout: cfg.SignalLog.LockTimeout,
	})
}

// initializeEngine wires fetcher, requester and signal log into the engine.
func initializeEngine(ctx context.Context, cfg *store.Config) (interfaces.Engine, error) {
	f, err := fetcher.New(cfg, initializeProvider(ctx, cfg))
	if err != nil {
		return nil, err
	}

	eng := engine.New(cfg, f, initializeRequester(ctx, cfg), initializeSignalLog(cfg))

	return engineobs.Wrap(cfg.Data.Symbol, eng), nil
}

func initializeMetrics() *metrics.Recorder {
	return metrics.New()
}
