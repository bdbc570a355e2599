// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// WebsocketPath is where user connections are accepted.
	WebsocketPath = "/ws"

	// MetricsPath is where prometheus metrics are exposed.
	MetricsPath = "/metrics"
)

// RouterConfig describes what the router serves. Every field is optional;
// routes are only added for what is set.
type RouterConfig struct {
	Websocket http.Handler
	Metrics   prometheus.Gatherer
	StaticDir string
}

// NewRouter returns the handler for the relay's HTTP endpoints.
func NewRouter(config RouterConfig) http.Handler {
	router := mux.NewRouter()
	if config.Websocket != nil {
		router.Handle(WebsocketPath, config.Websocket).Methods(http.MethodGet)
	}
	if config.Metrics != nil {
		router.Handle(MetricsPath, promhttp.HandlerFor(config.Metrics, promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}
	if config.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(config.StaticDir)))
	}
	return router
}
