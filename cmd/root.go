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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"majordomo/internal/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "majordomo",
	Short: "majordomo - a Majordomo Protocol (RFC 7) broker and toolkit",
	Long: `majordomo runs a single-threaded Majordomo routing broker, plus a
reference worker, a reference client, and a live TUI dashboard for
watching service and worker liveness.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetSilentMode(false)
			logger.SetLevel("debug")
		} else {
			logger.SetSilentMode(true)
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(brokerCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(versionCmd)
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
