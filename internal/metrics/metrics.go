// Package metrics owns the registry exposed on the status endpoint.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/layer-report-client/internal/core/observability"
)

type Config struct {
	Version string
}

type Provider struct {
	reg *prometheus.Registry
}

func Init(cfg Config) (*Provider, error) {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := observability.Init(reg); err != nil {
		return nil, fmt.Errorf("register client collectors: %w", err)
	}
	observability.ExposeBuildInfo(cfg.Version)

	return &Provider{reg: reg}, nil
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *Provider) Register(cs ...prometheus.Collector) {
	for _, c := range cs {
		p.reg.MustRegister(c)
	}
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }
