/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fraction-presale-go/internal/common"
	"fraction-presale-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "Drain the outbox once and exit instead of polling")
	verify := flag.String("verify", "", "Comma-separated token accounts whose mirrored balances are checked after draining (implies --once)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting ledger mirror")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	m, sink, err := common.InitializeMirror(ctx, cfg, services.DbService)
	if err != nil {
		zap.L().Fatal("Failed to initialize mirror", zap.Error(err))
	}
	defer sink.Close()

	if *once || *verify != "" {
		total := 0
		for {
			n, err := m.SyncOnce(ctx)
			if err != nil {
				zap.L().Fatal("Mirror sync failed", zap.Int("mirrored", total), zap.Error(err))
			}
			if n == 0 {
				break
			}
			total += n
		}
		zap.L().Info("Outbox drained", zap.Int("mirrored", total))

		failed := 0
		for _, value := range strings.Split(*verify, ",") {
			if value = strings.TrimSpace(value); value == "" {
				continue
			}
			account, err := common.ParseKey("account", value)
			if err != nil {
				zap.L().Error("Skipping account", zap.Error(err))
				failed++
				continue
			}
			if err := m.Verify(ctx, sink, account); err != nil {
				zap.L().Error("Verification failed", zap.Error(err))
				failed++
			}
		}
		if failed > 0 {
			zap.L().Fatal("Mirrored balances do not match", zap.Int("failed", failed))
		}
		return
	}

	m.Start(ctx)
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping mirror...")

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Mirror stopped gracefully")
	case <-time.After(30 * time.Second):
		zap.L().Warn("Forced shutdown after timeout")
	}
}
