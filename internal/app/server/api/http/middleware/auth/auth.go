package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/exp/slog"

	"daylog/internal/domain/authtoken"

	"github.com/danielgtaylor/huma/v2"
)

type Auth struct {
	tokens authtoken.Servicer
	log    *slog.Logger
}

func New(tokens authtoken.Servicer, log *slog.Logger) *Auth {
	return &Auth{
		tokens: tokens,
		log:    log.With("component", "auth_middleware"),
	}
}

type contextKey string

const UserIDKey contextKey = "userID"

// Middleware returns a huma middleware extracting and validating the bearer,
// stashing the resolved userId into the request context for downstream
// handlers (spec.md §4.4: "all sync endpoints require them").
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header("Authorization")

		if len(header) < 7 || header[:7] != "Bearer " {
			a.unauthorized(ctx, "missing bearer token")
			return
		}

		userID, err := a.tokens.Validate(ctx.Context(), header[7:])
		if err != nil {
			a.log.Debug("bearer validation failed", "error", err)
			a.unauthorized(ctx, "invalid or expired bearer token")
			return
		}

		newCtx := context.WithValue(ctx.Context(), UserIDKey, userID)
		next(huma.WithContext(ctx, newCtx))
	}
}

func (a *Auth) unauthorized(ctx huma.Context, reason string) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{"error": reason})
}

func GetUserID(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(UserIDKey).(int)
	return userID, ok
}
