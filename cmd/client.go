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
	"time"

	"github.com/spf13/cobra"

	"majordomo/internal/logger"
	"majordomo/internal/mdpclient"
)

var (
	clientBroker  string
	clientService string
	clientTimeout time.Duration
)

var clientCmd = &cobra.Command{
	Use:   "client [request body...]",
	Short: "Send one request to a Majordomo service and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Component("mdpclient")

		ctx, cancel := context.WithTimeout(context.Background(), clientTimeout+2*time.Second)
		defer cancel()

		c, err := mdpclient.Connect(ctx, clientBroker, mdpclient.Options{Timeout: clientTimeout, Log: log})
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer c.Close()

		body := make([][]byte, len(args))
		for i, a := range args {
			body[i] = []byte(a)
		}

		reply, err := c.Request(ctx, clientService, body)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		for _, frame := range reply {
			fmt.Println(string(frame))
		}
		return nil
	},
}

func init() {
	clientCmd.Flags().StringVar(&clientBroker, "broker", "tcp://localhost:5555", "broker ROUTER socket address")
	clientCmd.Flags().StringVar(&clientService, "service", "echo", "service name to request")
	clientCmd.Flags().DurationVar(&clientTimeout, "timeout", 10*time.Second, "reply timeout")
}
