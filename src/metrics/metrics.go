// Package metrics exposes Prometheus counters for the proposals API.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	proposalsCreated prometheus.Counter
	votesCast        prometheus.Counter
	answers          *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proposals",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		proposalsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "proposals",
			Name:      "created_total",
			Help:      "Proposals created.",
		}),
		votesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "proposals",
			Name:      "votes_total",
			Help:      "Votes counted.",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proposals",
			Name:      "answers_total",
			Help:      "Answers given, by state.",
		}, []string{"state"}),
	}
	reg.MustRegister(
		m.requests, m.proposalsCreated, m.votesCast, m.answers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ProposalCreated()              { m.proposalsCreated.Inc() }
func (m *Metrics) VoteCast()                     { m.votesCast.Inc() }
func (m *Metrics) ProposalAnswered(state string) { m.answers.WithLabelValues(state).Inc() }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by matched route so path ids do not explode
// the label set.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
