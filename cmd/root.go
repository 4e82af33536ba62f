// Copyright © 2025 Attestant Limited.
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
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/namada-exporter/namada-exporter/internal/config"
	"github.com/namada-exporter/namada-exporter/internal/logger"
)

const envPrefix = "NAMADA_EXPORTER"

var (
	cfgFile   string
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:   "namada-exporter",
	Short: "Prometheus exporter for Namada validators",
	Long: `namada-exporter queries a Namada node over CometBFT RPC and exposes validator,
network and node metrics in the OpenMetrics text format on every scrape.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.toml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
}

// IsDebugMode returns whether debug mode is enabled
func IsDebugMode() bool {
	return debugMode
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig validates the configuration read by initConfig and applies its
// log level.
func loadConfig() (*config.Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
		return nil, fmt.Errorf("config file not found, create config.toml or specify one with --config: %w", err)
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if err := logger.SetLevel(cfg.GetLogLevel()); err != nil {
		return nil, err
	}
	if IsDebugMode() {
		logger.SetDebugMode(true)
	}
	return cfg, nil
}
