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
	"syscall"

	"github.com/spf13/cobra"

	"majordomo/internal/logger"
	"majordomo/internal/mdpworker"
)

var (
	workerBroker  string
	workerService string
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a demo Majordomo worker",
	Long: `worker connects to a broker as a DEALER socket and serves one
service. This demo build only wires an echo handler: it returns the
request body back to the client unchanged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Component("mdpworker")
		log.Info().
			Str("broker", workerBroker).
			Str("service", workerService).
			Msg("starting demo worker")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := mdpworker.New(workerService, workerBroker, echoHandler, mdpworker.Options{Log: log})

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			log.Info().Msg("received shutdown signal")
			cancel()
		}()

		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("worker stopped: %w", err)
		}
		return nil
	},
}

func echoHandler(request [][]byte) ([][]byte, error) {
	return request, nil
}

func init() {
	workerCmd.Flags().StringVar(&workerBroker, "broker", "tcp://localhost:5555", "broker ROUTER socket address")
	workerCmd.Flags().StringVar(&workerService, "service", "echo", "service name to register under")
}
