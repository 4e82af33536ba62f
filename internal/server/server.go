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

package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/namada-exporter/namada-exporter/internal/logger"
)

const (
	shutdownTimeout      = 5 * time.Second
	defaultScrapeTimeout = 30 * time.Second
	// writeTimeoutMargin leaves room to write the 503 after a scrape hits
	// its deadline.
	writeTimeoutMargin = 5 * time.Second
)

// Scraper refreshes and renders the exported metrics.
type Scraper interface {
	Scrape(ctx context.Context) error
	Render() ([]byte, error)
}

type Server struct {
	addr          string
	scraper       Scraper
	scrapeTimeout time.Duration
}

// New returns a server for scraper. Each scrape is cancelled after
// scrapeTimeout; zero selects a default.
func New(addr string, scraper Scraper, scrapeTimeout time.Duration) *Server {
	if scrapeTimeout <= 0 {
		scrapeTimeout = defaultScrapeTimeout
	}
	return &Server{
		addr:          addr,
		scraper:       scraper,
		scrapeTimeout: scrapeTimeout,
	}
}

func (s *Server) writeTimeout() time.Duration {
	return s.scrapeTimeout + writeTimeoutMargin
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then drains open connections.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errorLog := logger.Writer(logrus.ErrorLevel)
	defer errorLog.Close()

	srv := &http.Server{
		Handler:      s.Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: s.writeTimeout(),
		ErrorLog:     log.New(errorLog, "", 0),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving metrics on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
