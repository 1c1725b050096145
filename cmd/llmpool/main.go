// Command llmpool is a thin CLI over the fan-out client: load a config
// file, build the provider pool, and either run a one-shot prompt or
// print the pool's stats snapshot.
//
// Usage:
//
//	llmpool chat --config config.yaml "your prompt"
//	llmpool stats --config config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/llmpool/config"
	"github.com/BaSui01/llmpool/internal/telemetry"
	"github.com/BaSui01/llmpool/llm"
	"github.com/BaSui01/llmpool/llm/observability"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "chat":
		runChat(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "version":
		fmt.Println("llmpool dev")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  llmpool chat --config config.yaml "prompt text"
  llmpool stats --config config.yaml
  llmpool version`)
}

func runChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to YAML config file")
	provider := fs.String("provider", "", "pin dispatch to one family")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "chat requires a prompt argument")
		os.Exit(1)
	}
	prompt := fs.Arg(0)

	client, cfg, logger, cleanup := bootstrap(*configPath)
	defer cleanup()

	result, err := client.Generate(context.Background(), prompt, llm.CallOptions{
		Pin:                 llm.Family(*provider),
		MaxValidatorRetries: cfg.LLM.MaxValidatorRetries,
	})
	if err != nil {
		logger.Error("dispatch failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Println(result.Text)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to YAML config file")
	_ = fs.Parse(args)

	client, _, _, cleanup := bootstrap(*configPath)
	defer cleanup()

	for family, instances := range client.Stats() {
		for _, s := range instances {
			fmt.Printf("%s %s active=%v requests=%d tokens=%d errors=%d\n",
				family, s.InstanceID, s.Active, s.TotalRequests, s.TotalTokens, s.ErrorCount)
		}
	}
}

// bootstrap loads config, builds the pool and balancer, and returns a
// ready Client, the loaded Config (so callers can read CLI-relevant
// settings like MaxValidatorRetries), and a cleanup func that stops the
// health loop and flushes the logger.
func bootstrap(configPath string) (*llm.Client, *config.Config, *zap.Logger, func()) {
	cfg, err := config.NewLoader().WithConfigPath(configPath).Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)

	poolCfg, err := cfg.BuildPoolConfig()
	if err != nil {
		logger.Fatal("invalid llm config", zap.Error(err))
	}

	pool, err := llm.BuildPool(poolCfg)
	if err != nil {
		logger.Fatal("build pool", zap.Error(err))
	}

	telemetryProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("telemetry init failed, continuing without it", zap.Error(err))
		telemetryProviders = nil
	}

	var metrics *observability.Metrics
	if cfg.Telemetry.Enabled {
		metrics, err = observability.NewMetrics()
		if err != nil {
			logger.Warn("metrics disabled, registration failed", zap.Error(err))
			metrics = nil
		}
	}

	balancer := llm.NewBalancer(pool, llm.WithLogger(logger), llm.WithMetrics(metrics))

	ctx, cancel := context.WithCancel(context.Background())
	balancer.StartHealthLoop(ctx)

	client := llm.NewClient(balancer)
	cleanup := func() {
		balancer.StopHealthLoop()
		if err := telemetryProviders.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
		cancel()
		_ = logger.Sync()
	}
	return client, cfg, logger, cleanup
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format != "console" {
		zapConfig.Encoding = "json"
	}

	logger, err := zapConfig.Build(zap.AddCaller())
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
