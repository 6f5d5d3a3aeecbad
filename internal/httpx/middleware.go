package httpx

import (
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	kafkax "github.com/ariefcatur/go-shop-orders/internal/kafka"
	"github.com/ariefcatur/go-shop-orders/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"net/http"
	"strings"
	"time"
)

// identify parses a bearer token when one is present. Invalid tokens are not
// rejected here; routes that need a user sit behind requireAuth.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok || s.Tokens == nil {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := s.Tokens.VerifyToken(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return "", false
	}
	return fields[1], true
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.ClaimsFrom(r.Context()) == nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing or invalid bearer token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger puts a request-scoped logger into the context, writes one
// line per request and turns panics into a 500.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		fields := []zap.Field{zap.String("request_id", reqID)}
		if c := auth.ClaimsFrom(r.Context()); c != nil {
			fields = append(fields, zap.Int64("user_id", c.UserID))
		}
		log := s.Log.With(fields...)

		ctx := logging.WithLogger(r.Context(), log)
		ctx = kafkax.WithTraceID(ctx, reqID)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("panic_recovered",
					zap.String("panic", fmt.Sprint(rec)),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				if ww.Status() == 0 {
					writeJSON(ww, http.StatusInternalServerError, errorBody{Error: "internal error"})
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
			)
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}
