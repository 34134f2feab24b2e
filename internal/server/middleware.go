package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bobmcallan/coinfolio/internal/common"
)

// responseWriter wraps http.ResponseWriter to capture status code and bytes written.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// Hijack lets the websocket upgrader take over the connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// recoveryMiddleware catches panics and returns 500.
func recoveryMiddleware(logger *common.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().
						Str("panic", fmt.Sprintf("%v", rec)).
						Str("path", r.URL.Path).
						Msg("Panic recovered in HTTP handler")
					WriteError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware adds CORS headers for the dashboard.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Correlation-ID, X-User-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// correlationIDMiddleware extracts or generates a correlation ID.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID := r.Header.Get("X-Request-ID")
		if corrID == "" {
			corrID = r.Header.Get("X-Correlation-ID")
		}
		if corrID == "" {
			corrID = uuid.New().String()[:8]
		}
		w.Header().Set("X-Correlation-ID", corrID)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(logger *common.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			dur := time.Since(start)
			corrID := w.Header().Get("X-Correlation-ID")

			event := logger.Trace()
			if rw.statusCode >= 500 {
				event = logger.Error()
			} else if rw.statusCode >= 400 {
				event = logger.Info()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("query", r.URL.RawQuery).
				Int("status", rw.statusCode).
				Int("bytes", rw.bytesWritten).
				Dur("duration", dur).
				Str("correlation_id", corrID).
				Msg("HTTP request")
		})
	}
}

// identityMiddleware resolves the caller into a UserContext.
//
// With auth.jwt_secret set, only an HS256 bearer token is trusted and its
// "sub" claim is the user id; a present but invalid token is rejected with
// 401. Without a secret the X-User-ID header is taken at face value, which
// is only suitable for development. Requests without identity pass through
// anonymously; user-scoped handlers reject them via requireUser.
func identityMiddleware(config *common.Config) func(http.Handler) http.Handler {
	secret := []byte(config.Auth.JWTSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			hasBearer := strings.HasPrefix(authHeader, "Bearer ")

			if len(secret) == 0 {
				if hasBearer {
					writeBearerChallenge(w, "token verification is not configured")
					return
				}
				if userID := strings.TrimSpace(r.Header.Get("X-User-ID")); userID != "" {
					r = r.WithContext(common.WithUserContext(r.Context(), &common.UserContext{UserID: userID}))
				}
				next.ServeHTTP(w, r)
				return
			}

			if !hasBearer {
				next.ServeHTTP(w, r)
				return
			}

			_, claims, err := validateJWT(strings.TrimPrefix(authHeader, "Bearer "), secret)
			if err != nil {
				writeBearerChallenge(w, "invalid or expired token")
				return
			}

			sub, _ := claims["sub"].(string)
			if sub == "" {
				writeBearerChallenge(w, "invalid token claims")
				return
			}

			uc := &common.UserContext{UserID: sub}
			uc.Email, _ = claims["email"].(string)
			uc.DisplayName, _ = claims["name"].(string)

			next.ServeHTTP(w, r.WithContext(common.WithUserContext(r.Context(), uc)))
		})
	}
}

// validateJWT parses and verifies an HMAC-signed token.
func validateJWT(tokenString string, secret []byte) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return token, claims, nil
}

// writeBearerChallenge writes a 401 response with a WWW-Authenticate header.
func writeBearerChallenge(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer error="invalid_token", error_description="%s"`, description))
	WriteError(w, http.StatusUnauthorized, description)
}

// requireUser returns the caller's UserContext, or writes 401 and returns nil.
func requireUser(w http.ResponseWriter, r *http.Request) *common.UserContext {
	uc := common.UserContextFromContext(r.Context())
	if uc == nil || uc.UserID == "" {
		WriteErrorWithCode(w, http.StatusUnauthorized, "Authentication required", "unauthenticated")
		return nil
	}
	return uc
}

// applyMiddleware wraps a handler with the middleware stack.
func applyMiddleware(handler http.Handler, logger *common.Logger, config *common.Config) http.Handler {
	// Apply in reverse order (last applied = first executed)
	handler = identityMiddleware(config)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = correlationIDMiddleware(handler)
	handler = corsMiddleware(handler)
	handler = recoveryMiddleware(logger)(handler)
	return handler
}
