package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"awgremote/cmd/awgremote/app"
	"awgremote/internal/config"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}))

	var configPath string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.Parse()

	cfg := config.New()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
			os.Exit(1)
		}
	}

	level, _ := cfg.Level()
	logLevel.Set(level)

	if err := app.Run(cfg, logger, flag.Args(), os.Stdout); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
