package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements ports.Metrics and serves its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	betsSettled    *prometheus.CounterVec
	stakeTotal     *prometheus.CounterVec
	payoutTotal    *prometheus.CounterVec
	betsRejected   *prometheus.CounterVec
	callbacks      *prometheus.CounterVec
	crashBurst     prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpDurationMs *prometheus.HistogramVec
}

func New() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		betsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casino_bets_settled_total",
			Help: "Bets settled, by game",
		}, []string{"game"}),
		stakeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casino_stake_minor_units_total",
			Help: "Stake of settled bets in minor units",
		}, []string{"game"}),
		payoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casino_payout_minor_units_total",
			Help: "Payout of settled bets in minor units",
		}, []string{"game"}),
		betsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casino_bets_rejected_total",
			Help: "Rejected bet requests, by game and error code",
		}, []string{"game", "code"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casino_seamless_callbacks_total",
			Help: "Provider callbacks, by provider, kind and reply code",
		}, []string{"provider", "kind", "code"}),
		crashBurst: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "casino_crash_burst_multiplier",
			Help:    "Burst point of finished crash rounds",
			Buckets: []float64{1, 1.5, 2, 3, 5, 10, 25, 100, 1000},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casino_http_requests_total",
			Help: "HTTP requests, by route and status",
		}, []string{"method", "route", "status"}),
		httpDurationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casino_http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"route"}),
	}
	p.registry.MustRegister(
		p.betsSettled, p.stakeTotal, p.payoutTotal, p.betsRejected, p.callbacks, p.crashBurst,
		p.httpRequests, p.httpDurationMs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) BetSettled(game string, stake, payout int64) {
	p.betsSettled.WithLabelValues(game).Inc()
	p.stakeTotal.WithLabelValues(game).Add(float64(stake))
	p.payoutTotal.WithLabelValues(game).Add(float64(payout))
}

func (p *Prometheus) BetRejected(game string, code string) {
	p.betsRejected.WithLabelValues(game, code).Inc()
}

func (p *Prometheus) SeamlessCallback(provider string, kind string, code int) {
	p.callbacks.WithLabelValues(provider, kind, strconv.Itoa(code)).Inc()
}

func (p *Prometheus) CrashRound(burst float64) {
	p.crashBurst.Observe(burst)
}

// HTTPRequest records one served request; route is the gin route template.
func (p *Prometheus) HTTPRequest(method, route string, status int, ms float64) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDurationMs.WithLabelValues(route).Observe(ms)
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
