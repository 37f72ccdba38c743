package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/yourorg/placements/internal/domain"
	"github.com/yourorg/placements/internal/security/auth"
	"github.com/yourorg/placements/internal/security/ratelimit"
)

// publicPath reports whether the path is reachable without a principal.
func publicPath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

// JWTMiddleware validates the bearer token and stores the principal's
// username on the request context. The X-Service-Name header selects which
// placement service the request acts for.
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := auth.ContextWithUsername(r.Context(), claims.Username)

			switch service := domain.ServiceName(r.Header.Get("X-Service-Name")); service {
			case domain.ServiceApprovedPremises, domain.ServiceTemporaryAccommodation:
				ctx = auth.ContextWithServiceName(ctx, service)
			case "":
				// No service header is fine for user-management endpoints
			default:
				log.Warn("unknown service name header", slog.String("service", string(service)))
				http.Error(w, `{"error":"unknown service name"}`, http.StatusBadRequest)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware limits request rates per authenticated principal.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			username := auth.UsernameFromContext(r.Context())
			if !limiter.Allow(username) {
				log.Warn("rate limit exceeded", slog.String("username", username))
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ValidateJSONContentType ensures body-carrying requests send JSON.
func ValidateJSONContentType(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if !strings.Contains(contentType, "application/json") {
				log.Warn("invalid content type",
					slog.String("path", r.URL.Path),
					slog.String("content_type", contentType),
					slog.String("method", r.Method),
				)
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
