package service

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics Prometheus 指标；nil 接收者上的方法均为空操作，测试可直接传 nil
type Metrics struct {
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	resolutions       *prometheus.CounterVec
	devicePushes      *prometheus.CounterVec
	priceCache        *prometheus.CounterVec
	alerts            *prometheus.CounterVec
}

// NewMetrics 创建并注册指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chai_http_requests_total",
			Help: "Total count of HTTP requests processed by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chai_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chai_heating_resolutions_total",
			Help: "Heating status resolutions by resulting mode.",
		}, []string{"mode"}),
		devicePushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chai_device_pushes_total",
			Help: "Valve commands by outcome.",
		}, []string{"result"}),
		priceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chai_price_cache_total",
			Help: "Price cache lookups by result.",
		}, []string{"result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chai_alerts_total",
			Help: "Alerts raised by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.resolutions,
		m.devicePushes,
		m.priceCache,
		m.alerts,
	)
	return m
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) Resolution(mode string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(mode).Inc()
}

func (m *Metrics) DevicePush(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.devicePushes.WithLabelValues(result).Inc()
}

func (m *Metrics) PriceCache(result string) {
	if m == nil {
		return
	}
	m.priceCache.WithLabelValues(result).Inc()
}

func (m *Metrics) AlertRaised(kind string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(kind).Inc()
}
