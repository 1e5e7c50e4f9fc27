package auth

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) googleOp() huma.Operation {
	return huma.Operation{
		OperationID: "auth-google",
		Method:      http.MethodPost,
		Path:        "/auth/google",
		Summary:     "Exchange a Google ID token for a bearer token",
		Tags:        []string{"auth"},
		Middlewares: h.publicMiddleware,
	}
}

func (h *Handler) internalOp() huma.Operation {
	return huma.Operation{
		OperationID: "auth-internal",
		Method:      http.MethodPost,
		Path:        "/auth/internal",
		Summary:     "Exchange an internal deployment credential for a bearer token",
		Description: "Present only behind the internal deployment credential (INTERNAL_AUTH_HASH); skips external OAuth verification.",
		Tags:        []string{"auth"},
		Middlewares: h.publicMiddleware,
	}
}

func (h *Handler) meOp() huma.Operation {
	return huma.Operation{
		OperationID: "auth-me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Return the bearer's identity",
		Tags:        []string{"auth"},
		Middlewares: h.authedMiddleware,
	}
}
