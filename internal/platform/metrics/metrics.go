// Package metrics exposes the process Prometheus registry: served over HTTP
// in watch mode, pushed to a Pushgateway after one-shot runs. The metrics
// themselves are registered by the modules that own them.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"pacwatch/internal/platform/config"
)

// Handler serves the default registry for the admin /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Push sends the default registry to the configured Pushgateway, grouped
// under the configured job name. A blank push URL is a no-op: one-shot runs
// under a scheduler work fine without a gateway, they just leave no metrics
// behind.
func Push(cfg config.Metrics) error {
	if cfg.PushURL == "" {
		return nil
	}
	if err := push.New(cfg.PushURL, cfg.Job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
