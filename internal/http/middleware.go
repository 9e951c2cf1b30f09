package httpapi

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"chai-api/internal/domain"
	"chai-api/internal/service"
)

type ctxKey int

const (
	ctxUser ctxKey = iota
	ctxRequestID
)

// RequestIDHeader 透传或生成的请求 ID
const RequestIDHeader = "X-Request-Id"

// UserFromContext home token 或 "anonymous"
func UserFromContext(ctx context.Context) string {
	if user, ok := ctx.Value(ctxUser).(string); ok && user != "" {
		return user
	}
	return domain.AnonymousUser
}

// RequestIDFromContext 当前请求 ID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

// statusRecorder 记录响应状态码
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// RequestID 沿用调用方的 X-Request-Id，否则生成一个
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxRequestID, id)))
	})
}

// AccessLog 每个请求一条日志
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.code()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			)
		})
	}
}

// Metrics 按路由模板统计（mux 中间件，只作用于已匹配的路由）
func Metrics(metrics *service.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = strings.TrimSuffix(tpl, "/")
				}
			}
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			metrics.ObserveRequest(route, r.Method, rec.code(), time.Since(start))
		})
	}
}

// Auth 校验 "Authorization: Bearer <shared>[,<home token>]"。
// shared 为空时不校验共享密钥，但仍读取 home token。
type Auth struct {
	shared string
	open   map[string]bool
}

// NewAuth openPaths 不需要认证（健康检查、指标）
func NewAuth(shared string, openPaths ...string) *Auth {
	open := make(map[string]bool, len(openPaths))
	for _, p := range openPaths {
		open[p] = true
	}
	return &Auth{shared: shared, open: open}
}

const bearerPrefix = "Bearer "

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.open[strings.TrimSuffix(r.URL.Path, "/")] {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" && a.shared != "" {
			writeText(w, http.StatusUnauthorized, "An authorization bearer is required.")
			return
		}

		shared, user, err := parseBearer(header)
		if a.shared != "" && (err != nil || subtle.ConstantTimeCompare([]byte(shared), []byte(a.shared)) != 1) {
			writeText(w, http.StatusUnauthorized, "The bearer token is not valid.")
			return
		}
		if user != "" {
			r = r.WithContext(context.WithValue(r.Context(), ctxUser, user))
		}
		next.ServeHTTP(w, r)
	})
}

// parseBearer splits "Bearer <shared>,<home token>"; the home token is optional
func parseBearer(header string) (shared, user string, err error) {
	if header == "" {
		return "", "", nil
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", "", fmt.Errorf("not a bearer authorization")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	shared, user, _ = strings.Cut(token, ",")
	return strings.TrimSpace(shared), strings.TrimSpace(user), nil
}

// recoveryLogger 适配 handlers.RecoveryLogger：panic 记录日志并告警
type recoveryLogger struct {
	logger  *zap.Logger
	alerter service.Alerter
	metrics *service.Metrics
}

func (l recoveryLogger) Println(v ...interface{}) {
	msg := fmt.Sprint(v...)
	l.logger.Error("Recovered from panic", zap.String("panic", msg))
	service.RaiseAlert(context.Background(), l.alerter, l.metrics, l.logger, service.Alert{
		Kind:    service.AlertInternalError,
		Message: "panic: " + msg,
	})
}
