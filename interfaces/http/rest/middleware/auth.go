package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"engram/infrastructure/config"
	"engram/pkg/auth"
)

// The middleware's single job is establishing the owner identity:
// every memory operation downstream is scoped to the authenticated
// user, so a request without a resolvable owner never reaches a
// handler.

const (
	issuer = "engram"

	// gatewayBypassToken marks a request whose JWT was already
	// validated by the API Gateway authorizer in front of the Lambda
	gatewayBypassToken = "api-gateway-validated"
)

var audience = []string{"engram-api"}

// Authenticate resolves the owner identity for each request. Inside
// Lambda the API Gateway JWT authorizer has validated the token before
// the request arrives, so the middleware trusts the forwarded identity
// headers; everywhere else it validates the bearer token itself.
func Authenticate() func(next http.Handler) http.Handler {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return authenticatePreAuthorized()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		// Local runs without full configuration still get working auth
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			secret = "development-secret-change-in-production"
		}
		cfg = &config.Config{JWTSecret: secret, JWTIssuer: issuer}
	}

	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
		Audience:      audience,
	})
	if err != nil {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				respondUnauthorized(w, "Authentication system error")
			})
		}
	}

	ipLimiter := auth.NewIPRateLimiter(100)
	ownerLimiter := auth.NewUserRateLimiter(200)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowed, _ := ipLimiter.Allow(r.Context(), clientIP(r)); !allowed {
				respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				respondUnauthorized(w, "Missing or malformed authorization header")
				return
			}

			var owner *auth.UserContext
			if token == gatewayBypassToken && r.Header.Get("X-API-Gateway-Authorized") == "true" {
				var err error
				owner, err = ownerFromGatewayHeaders(r)
				if err != nil {
					respondUnauthorized(w, "Missing owner identity from API Gateway")
					return
				}
			} else {
				claims, err := validator.ValidateToken(token)
				if err != nil {
					switch {
					case errors.Is(err, auth.ErrExpiredToken):
						respondUnauthorized(w, "Token has expired")
					case errors.Is(err, auth.ErrInvalidSignature):
						respondUnauthorized(w, "Invalid token signature")
					default:
						respondUnauthorized(w, "Invalid token")
					}
					return
				}
				owner = &auth.UserContext{
					UserID: claims.UserID,
					Email:  claims.Email,
					Roles:  claims.Roles,
				}
			}

			if allowed, _ := ownerLimiter.Allow(r.Context(), owner.UserID); !allowed {
				respondWithError(w, http.StatusTooManyRequests, "User rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), owner)))
		})
	}
}

// authenticatePreAuthorized serves the Lambda deployment, where the
// gateway authorizer already rejected invalid tokens and the Lambda
// entrypoint forwarded the identity as headers
func authenticatePreAuthorized() func(next http.Handler) http.Handler {
	ipLimiter := auth.NewIPRateLimiter(100)
	ownerLimiter := auth.NewUserRateLimiter(200)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowed, _ := ipLimiter.Allow(r.Context(), clientIP(r)); !allowed {
				respondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			if r.Header.Get("X-API-Gateway-Authorized") != "true" {
				respondUnauthorized(w, "Request not authorized by API Gateway")
				return
			}

			owner, err := ownerFromGatewayHeaders(r)
			if err != nil {
				respondUnauthorized(w, "Missing owner identity from API Gateway")
				return
			}

			if allowed, _ := ownerLimiter.Allow(r.Context(), owner.UserID); !allowed {
				respondWithError(w, http.StatusTooManyRequests, "User rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), owner)))
		})
	}
}

// ownerFromGatewayHeaders builds the owner identity from the headers
// the Lambda entrypoint forwards out of the gateway authorizer context
func ownerFromGatewayHeaders(r *http.Request) (*auth.UserContext, error) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		return nil, errors.New("missing owner identity")
	}

	owner := &auth.UserContext{
		UserID: userID,
		Email:  r.Header.Get("X-User-Email"),
		Roles:  []string{"authenticated"},
	}
	if roles := r.Header.Get("X-User-Roles"); roles != "" {
		owner.Roles = strings.Split(roles, ",")
	}
	return owner, nil
}

// bearerToken extracts the bearer token from the Authorization header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		header = r.Header.Get("authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// clientIP extracts the client address for rate limiting, preferring
// the proxy-forwarded headers over the socket address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	respondWithError(w, http.StatusUnauthorized, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    code,
	})
}
