// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"majordomo/internal/admin"
	"majordomo/internal/config"
	"majordomo/internal/logger"
	"majordomo/internal/mdp"
	zmqtransport "majordomo/internal/transport/zmq"
)

var (
	brokerConfigPath string
	brokerBindAddr   string
	brokerAdminAddr  string
)

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Run the Majordomo routing broker",
	Long: `broker starts the routing engine: a ROUTER socket shared by clients
and workers, a per-service availability and pending-request queue, and a
periodic heartbeat sweep that retires unresponsive workers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadBrokerConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log := logger.Component("broker")
		log.Info().
			Str("bind", cfg.Broker.Bind).
			Dur("heartbeat_interval", cfg.Broker.HeartbeatInterval).
			Int("heartbeat_liveness", cfg.Broker.HeartbeatLiveness).
			Msg("starting majordomo broker")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		transport, err := zmqtransport.New(ctx, zmqtransport.Options{
			Bind: cfg.Broker.Bind,
			HWM:  1000,
			Log:  log,
		})
		if err != nil {
			return fmt.Errorf("create ROUTER transport: %w", err)
		}
		defer transport.Close()

		broker := mdp.NewBroker(transport, mdp.Options{
			HeartbeatInterval: cfg.Broker.HeartbeatInterval,
			HeartbeatLiveness: cfg.Broker.HeartbeatLiveness,
			Logger:            log,
		})

		var wg sync.WaitGroup
		errCh := make(chan error, 2)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := broker.Run(ctx); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("broker loop stopped: %w", err)
			}
		}()

		if cfg.Admin.Bind != "" {
			store, err := admin.NewStatsStore(cfg.Admin.StatsDBPath)
			if err != nil {
				return fmt.Errorf("open admin stats store: %w", err)
			}
			defer store.Close()

			collector := admin.NewCollector(broker, store, cfg.Admin.SnapshotPeriod)
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = collector.Run(ctx)
			}()

			adminServer := admin.NewServer(broker, admin.Config{
				JWTSecret: cfg.Admin.JWTSecret,
				Issuer:    "majordomo",
				User:      cfg.Admin.AdminUser,
				PassHash:  cfg.Admin.AdminPassHash,
			})
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := adminServer.Start(cfg.Admin.Bind); err != nil {
					errCh <- fmt.Errorf("admin API stopped: %w", err)
				}
			}()
			defer adminServer.Shutdown()
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		case err := <-errCh:
			log.Error().Err(err).Msg("service error")
			cancel()
			return err
		}

		cancel()
		wg.Wait()
		return nil
	},
}

func loadBrokerConfig() (*config.Config, error) {
	if brokerConfigPath == "" {
		cfg := config.NewDefaultConfig()
		applyBrokerOverrides(cfg)
		return cfg, cfg.Validate()
	}
	cfg, err := config.LoadConfig(brokerConfigPath)
	if err != nil {
		return nil, err
	}
	applyBrokerOverrides(cfg)
	return cfg, nil
}

func applyBrokerOverrides(cfg *config.Config) {
	if brokerBindAddr != "" {
		cfg.Broker.Bind = brokerBindAddr
	}
	if brokerAdminAddr != "" {
		cfg.Admin.Bind = brokerAdminAddr
	}
}

func init() {
	brokerCmd.Flags().StringVarP(&brokerConfigPath, "config", "c", "", "path to a YAML config file (optional, defaults apply otherwise)")
	brokerCmd.Flags().StringVar(&brokerBindAddr, "bind", "", "ROUTER socket bind address (overrides config), e.g. tcp://*:5555")
	brokerCmd.Flags().StringVar(&brokerAdminAddr, "admin-bind", "", "admin API bind address (overrides config when set); the admin API is disabled when no bind address is configured")
}
