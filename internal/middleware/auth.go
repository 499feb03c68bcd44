package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"threadhub/internal/config"
	"threadhub/internal/contextutils"
	"threadhub/internal/response"
	"threadhub/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Claims are the tenant-member claims the engine expects in bearer
// tokens. The engine never issues tokens; the surrounding platform does.
type Claims struct {
	UserID    int64  `json:"user_id"`
	CompanyID int64  `json:"company_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Auth verifies the bearer token and loads the member identity into the
// request context. Requests without a valid token are rejected.
func Auth(cfg *config.AuthConfig, builder *response.Builder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				builder.Error(w, r, services.NewUnauthorizedError("missing bearer token"))
				return
			}

			claims, err := parseClaims(token, cfg.JWTSecret)
			if err != nil {
				logger.Debug("token rejected",
					zap.String("request_id", contextutils.GetRequestID(r.Context())),
					zap.Error(err),
				)
				builder.Error(w, r, services.NewUnauthorizedError("invalid or expired token"))
				return
			}

			ctx := contextutils.WithUserID(r.Context(), claims.UserID)
			ctx = contextutils.WithCompanyID(ctx, claims.CompanyID)
			ctx = contextutils.WithUsername(ctx, claims.Username)
			ctx = contextutils.WithUserRole(ctx, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// Websocket clients cannot set headers from the browser; accept the
	// token as a query parameter on upgrade requests.
	return r.URL.Query().Get("token")
}

func parseClaims(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.UserID == 0 || claims.CompanyID == 0 {
		return nil, fmt.Errorf("token missing member identity")
	}
	return claims, nil
}
