package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kislikjeka/agrovest/pkg/logger"
)

// RequestIDHeader echoes chi's request id back to the client
const RequestIDHeader = "X-Request-Id"

// errorBody keeps the body of failed responses so the log line can carry
// the error code the client saw
type errorBody struct {
	chimiddleware.WrapResponseWriter
	buf bytes.Buffer
}

func (e *errorBody) Write(b []byte) (int, error) {
	if e.Status() >= http.StatusBadRequest && e.buf.Len() < 4096 {
		e.buf.Write(b)
	}
	return e.WrapResponseWriter.Write(b)
}

// errorFields pulls "error" and "code" out of a JSON error body
func errorFields(body []byte) []any {
	var obj struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(body, &obj) != nil {
		return nil
	}
	var attrs []any
	if obj.Error != "" {
		attrs = append(attrs, "error", obj.Error)
	}
	if obj.Code != "" {
		attrs = append(attrs, "error_code", obj.Code)
	}
	return attrs
}

// Logger writes one record per request: info for success, warn for 4xx and
// error for 5xx
func Logger(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := chimiddleware.GetReqID(r.Context())
			if reqID != "" {
				w.Header().Set(RequestIDHeader, reqID)
				r = r.WithContext(context.WithValue(r.Context(), logger.RequestIDKey, reqID))
			}

			ww := &errorBody{WrapResponseWriter: chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)}

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", clientKey(r),
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
				}
				if reqID != "" {
					attrs = append(attrs, "request_id", reqID)
				}
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					attrs = append(attrs, "route", rctx.RoutePattern())
				}
				if status >= http.StatusBadRequest {
					attrs = append(attrs, errorFields(ww.buf.Bytes())...)
				}

				switch {
				case status >= http.StatusInternalServerError:
					log.Error("http request", attrs...)
				case status >= http.StatusBadRequest:
					log.Warn("http request", attrs...)
				default:
					log.Info("http request", attrs...)
				}
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
