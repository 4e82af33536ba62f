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

package healthcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/namada-exporter/namada-exporter/internal/common"
	"github.com/namada-exporter/namada-exporter/internal/config"
	"github.com/namada-exporter/namada-exporter/internal/logger"
	"github.com/namada-exporter/namada-exporter/internal/version"
)

// HealthChecker pings a dead man's switch URL at a fixed rate.
type HealthChecker struct {
	client *http.Client
	url    string
	rate   time.Duration
}

func New(cfg *config.HealthCheckConfig) *HealthChecker {
	return &HealthChecker{
		client: common.NewHTTPClient(cfg.GetTimeout(), version.UserAgent()),
		url:    cfg.PingURL,
		rate:   cfg.GetPingRate(),
	}
}

// Start pings immediately and then on every tick until ctx is cancelled.
// Ping failures are logged and never stop the loop.
func (h *HealthChecker) Start(ctx context.Context) {
	logger.Info("Starting health check loop, pinging %s every %s", h.url, h.rate)

	ticker := time.NewTicker(h.rate)
	defer ticker.Stop()

	h.ping(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check loop stopped")
			return
		case <-ticker.C:
			h.ping(ctx)
		}
	}
}

func (h *HealthChecker) ping(ctx context.Context) {
	status, err := h.Ping(ctx)
	switch {
	case err != nil:
		if ctx.Err() == nil {
			logger.Error("Health check ping failed: %v", err)
		}
	case status >= 200 && status < 300:
		logger.Info("Health check ping successful: %d", status)
	default:
		logger.Warn("Health check ping returned non-success status: %d", status)
	}
}

// Ping issues a single GET against the ping URL and returns the status code.
func (h *HealthChecker) Ping(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
