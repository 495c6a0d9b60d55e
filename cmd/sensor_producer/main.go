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
	configPath := flag.String("config", "compass_config.txt", "path to the configuration file (KEY=VALUE or .yaml)")
	flag.Parse()

	log.Println("starting web-compass sensor producer (IMU/mock → MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunSensorProducer(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
