package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xau-signal-bot/internal/logger"
	"xau-signal-bot/internal/runlog"
	"xau-signal-bot/internal/trace"
	"xau-signal-bot/internal/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "error (%s): %v\n", "config", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(sctx)
	}()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error (%s): %v\n", "config", err)
		return 1
	}

	initializeTracing(ctx, cfg)

	journal := runlog.New(cfg.RunLog.Dir)
	compressOldRuns(ctx, journal, cfg.RunLog.RetentionDays)

	eng, err := initializeEngine(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to build pipeline", err)
		fmt.Fprintf(os.Stderr, "error (%s): %v\n", "config", err)
		return 1
	}
	rec := initializeMetrics()
	if rerr := rec.Restore(cfg.Metrics.Textfile); rerr != nil {
		logger.Warn(ctx, "Failed to restore metrics textfile", "path", cfg.Metrics.Textfile, "error", rerr)
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Run.Timeout)
	defer cancel()

	start := time.Now()
	res, err := eng.Run(runCtx)
	took := time.Since(start)
	if errors.Is(err, context.DeadlineExceeded) && types.ErrorKind(err) == "unknown" {
		err = fmt.Errorf("%w: run timed out after %s: %w", types.ErrRequestFailed, cfg.Run.Timeout, err)
	}

	entry := runlog.NewEntry(cfg.Data.Symbol, res, err, took)
	entry.Provider = cfg.Data.Provider
	entry.Model = cfg.LLM.Model
	if jerr := journal.Append(entry); jerr != nil {
		logger.Warn(ctx, "Failed to write run journal", "dir", journal.Dir(), "error", jerr)
	}

	rec.ObserveRun(cfg.Data.Symbol, res, err, took)
	if merr := rec.WriteTextfile(cfg.Metrics.Textfile); merr != nil {
		logger.Warn(ctx, "Failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", merr)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error (%s): %v\n", types.ErrorKind(err), err)
		return 1
	}

	b, _ := json.MarshalIndent(res.Signal, "", "  ")
	fmt.Println(string(b))
	return 0
}
