// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/ttbt-io/dugout/backend"
)

var (
	cfg       backend.Config
	envFile   string
	serverURL string
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:           "dugout",
	Short:         "Batting order and at-bat scorekeeping",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		var err error
		if cfg, err = backend.LoadConfig(files...); err != nil {
			return err
		}
		if cmd.Flags().Changed("server") {
			cfg.ServerURL = serverURL
		}
		if debugMode {
			cfg.Debug = true
		}
		if cfg.Debug {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Read configuration from this dotenv file instead of ./.env")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "The dugout server to edit through")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
