// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/web_compass/internal/app"
	"github.com/relabs-tech/web_compass/internal/config"
)

func main() {
	configPath := flag.String("config", "", "optional configuration file; defaults are used when empty")
	flag.Parse()

	log.Println("starting web-compass (mock console)")

	var cfg *config.Config
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = c
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMockConsole(ctx, cfg); err != nil && ctx.Err() == nil {
		log.Fatalf("fatal: %v", err)
	}
}
