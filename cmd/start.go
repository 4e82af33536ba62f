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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/namada-exporter/namada-exporter/internal/config"
	"github.com/namada-exporter/namada-exporter/internal/exporter"
	"github.com/namada-exporter/namada-exporter/internal/healthcheck"
	"github.com/namada-exporter/namada-exporter/internal/logger"
	"github.com/namada-exporter/namada-exporter/internal/metrics"
	"github.com/namada-exporter/namada-exporter/internal/namada"
	"github.com/namada-exporter/namada-exporter/internal/server"
	"github.com/namada-exporter/namada-exporter/internal/version"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the metrics server",
	Long: `Start serving validator metrics on the configured host. Every request to /metrics
queries the configured RPC node and refreshes the exported values.`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	exp, err := newExporter(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting %s for validator %s against %s", version.UserAgent(), cfg.ValidatorTMAddress, cfg.HTTPRPC)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.New(cfg.Host, exp, cfg.GetScrapeTimeout()).Run(gctx)
	})
	if cfg.HealthCheck != nil {
		checker := healthcheck.New(cfg.HealthCheck)
		g.Go(func() error {
			checker.Start(gctx)
			return nil
		})
	}

	return g.Wait()
}

func newExporter(cfg *config.Config) (*exporter.Exporter, error) {
	client, err := namada.NewClient(cfg.HTTPRPC, cfg.GetRPCTimeout())
	if err != nil {
		return nil, err
	}
	logger.Debug("Using RPC endpoint %s", client.Endpoint())
	return exporter.New(client, metrics.NewRegistry(), cfg.ValidatorTMAddress), nil
}
