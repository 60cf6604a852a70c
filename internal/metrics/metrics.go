package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service's collectors on a private prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	TxLatencySec    *prometheus.HistogramVec
	TxTotal         *prometheus.CounterVec
	OrdersPlaced    prometheus.Counter
	OrdersCancelled prometheus.Counter
	OrderValue      prometheus.Histogram
	HTTPRequests    *prometheus.CounterVec
	EventsProjected *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	txLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shop_order_tx_latency_seconds",
		Help:    "Duration of order engine transactions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	txTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_order_tx_total",
		Help: "Order engine transactions by outcome.",
	}, []string{"op", "outcome"})
	placed := prometheus.NewCounter(prometheus.CounterOpts{Name: "shop_orders_placed_total"})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{Name: "shop_orders_cancelled_total"})
	value := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shop_order_value",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})
	httpReqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_http_requests_total",
	}, []string{"method", "route", "code"})
	projected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_events_projected_total",
	}, []string{"event_type", "result"})

	r.MustRegister(txLatency, txTotal, placed, cancelled, value, httpReqs, projected)
	return &Registry{
		reg:             r,
		TxLatencySec:    txLatency,
		TxTotal:         txTotal,
		OrdersPlaced:    placed,
		OrdersCancelled: cancelled,
		OrderValue:      value,
		HTTPRequests:    httpReqs,
		EventsProjected: projected,
	}
}

func (r *Registry) ObserveTx(op, outcome string, d time.Duration) {
	r.TxLatencySec.WithLabelValues(op).Observe(d.Seconds())
	r.TxTotal.WithLabelValues(op, outcome).Inc()
}

func (r *Registry) OrderPlaced(total float64) {
	r.OrdersPlaced.Inc()
	r.OrderValue.Observe(total)
}

func (r *Registry) OrderCancelled() { r.OrdersCancelled.Inc() }

func (r *Registry) ObserveHTTP(method, route string, code int) {
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

func (r *Registry) EventProjected(eventType, result string) {
	r.EventsProjected.WithLabelValues(eventType, result).Inc()
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
