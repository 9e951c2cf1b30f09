package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"chai-api/internal/service"
)

// Router 基于 gorilla/mux；每个路径同时注册带与不带结尾斜杠的形式
type Router struct {
	mux  *mux.Router
	base responder
}

// NotFoundText 未知路径的提示
const NotFoundText = "unknown API endpoint - make sure you did not omit the trailing slash"

// TimeoutText 请求超时（503）
const TimeoutText = "the request did not complete in time"

func NewRouter(logger *zap.Logger, alerter service.Alerter, metrics *service.Metrics) *Router {
	m := mux.NewRouter()
	m.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusNotFound, NotFoundText)
	})
	return &Router{
		mux:  m,
		base: responder{logger: logger, alerter: alerter, metrics: metrics},
	}
}

// Handle 注册 path 与 path+"/"
func (r *Router) Handle(path string, h http.HandlerFunc, methods ...string) {
	path = strings.TrimSuffix(path, "/")
	r.mux.HandleFunc(path, h).Methods(methods...)
	r.mux.HandleFunc(path+"/", h).Methods(methods...)
}

// HandleHandler 支持 http.Handler（/metrics）
func (r *Router) HandleHandler(path string, h http.Handler) {
	r.mux.Handle(path, h).Methods(http.MethodGet)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) RegisterHeatingRoutes(svc *service.HeatingService) {
	h := NewHeatingHandler(svc, r.base)
	r.Handle("/heating/mode", h.GetMode, http.MethodGet)
	r.Handle("/heating/mode", h.SetMode, http.MethodPut)
	r.Handle("/heating/valve", h.GetValve, http.MethodGet)
	r.Handle("/heating/history", h.GetHistory, http.MethodGet)
}

func (r *Router) RegisterScheduleRoutes(svc *service.ScheduleService) {
	h := NewScheduleHandler(svc, r.base)
	r.Handle("/schedule", h.Get, http.MethodGet)
	r.Handle("/schedule", h.Put, http.MethodPut)
}

func (r *Router) RegisterProfileRoutes(svc *service.ProfileService) {
	h := NewProfileHandler(svc, r.base)
	r.Handle("/heating/profile", h.List, http.MethodGet)
	r.Handle("/profile/reset", h.Reset, http.MethodGet, http.MethodPut)
	r.Handle("/xai/region", h.Region, http.MethodGet)
	r.Handle("/xai/band", h.Band, http.MethodGet)
	r.Handle("/xai/scatter", h.Scatter, http.MethodGet)
}

func (r *Router) RegisterLogRoutes(svc *service.LogService) {
	h := NewLogsHandler(svc, r.base)
	r.Handle("/logs", h.List, http.MethodGet)
	r.Handle("/logs/export", h.Export, http.MethodGet)
}

func (r *Router) RegisterPriceRoutes(svc *service.PriceService) {
	h := NewPricesHandler(svc, r.base)
	r.Handle("/electricity/prices", h.List, http.MethodGet)
}

// Open paths skip bearer authentication
const (
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

// RegisterOpsRoutes 健康检查与 Prometheus 指标
func (r *Router) RegisterOpsRoutes(gatherer prometheus.Gatherer) {
	r.Handle(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}, http.MethodGet)
	if gatherer != nil {
		r.HandleHandler(MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}

// Options 外层中间件配置
type Options struct {
	Bearer         string
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// Handler 组装中间件：recovery -> CORS -> request id -> access log -> timeout -> mux(metrics, auth)
func (r *Router) Handler(opts Options) http.Handler {
	auth := NewAuth(opts.Bearer, HealthPath, MetricsPath)
	r.mux.Use(Metrics(r.base.metrics), auth.Middleware)

	var h http.Handler = r.mux
	if opts.RequestTimeout > 0 {
		h = http.TimeoutHandler(h, opts.RequestTimeout, TimeoutText)
	}
	h = AccessLog(r.base.logger)(h)
	h = RequestID(h)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	h = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", RequestIDHeader}),
		handlers.ExposedHeaders([]string{RequestIDHeader}),
	)(h)

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: r.base.logger, alerter: r.base.alerter, metrics: r.base.metrics}),
	)(h)
}
