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
	"net/http"

	"github.com/justinas/alice"

	"github.com/namada-exporter/namada-exporter/internal/exporter"
	"github.com/namada-exporter/namada-exporter/internal/logger"
	"github.com/namada-exporter/namada-exporter/internal/metrics"
)

// Handler returns the routes wrapped in the standard middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.health)
	mux.HandleFunc("GET /metrics", s.metrics)

	standard := alice.New(
		recoverPanic,
		logRequest,
		commonHeaders,
	)
	return standard.Then(mux)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.scrapeTimeout)
	defer cancel()

	if err := s.scraper.Scrape(ctx); err != nil {
		var scrapeErr *exporter.ScrapeError
		if errors.As(err, &scrapeErr) {
			http.Error(w, "scrape failed while "+scrapeErr.Stage, http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "scrape failed", http.StatusServiceUnavailable)
		return
	}

	body, err := s.scraper.Render()
	if err != nil {
		logger.Error("Failed to render metrics: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", metrics.ContentType)
	w.Write(body)
}
