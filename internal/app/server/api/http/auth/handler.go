package auth

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"daylog/internal/app/server/api/http/middleware/auth"
	"daylog/internal/domain/identity"
)

type Handler struct {
	service          identity.Servicer
	log              *slog.Logger
	publicMiddleware huma.Middlewares
	authedMiddleware huma.Middlewares
}

func NewHandler(service identity.Servicer, log *slog.Logger, publicMiddleware, authedMiddleware huma.Middlewares) *Handler {
	return &Handler{
		service:          service,
		log:              log,
		publicMiddleware: publicMiddleware,
		authedMiddleware: authedMiddleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.googleOp(), h.google)
	huma.Register(api, h.internalOp(), h.internal)
	huma.Register(api, h.meOp(), h.me)
}

func (h *Handler) google(ctx context.Context, input *GoogleExchangeInput) (*ExchangeOutput, error) {
	id, token, err := h.service.ExchangeGoogle(ctx, input.Body.IDToken)
	if err != nil {
		h.log.Debug("google exchange failed", "error", err)
		return nil, huma.Error401Unauthorized("invalid google id token")
	}

	return &ExchangeOutput{Body: ExchangeResponse{Token: token, User: toUserWire(id)}}, nil
}

func (h *Handler) internal(ctx context.Context, input *InternalExchangeInput) (*ExchangeOutput, error) {
	id, token, err := h.service.ExchangeInternal(ctx, input.Body.Secret, input.Body.ProviderID, input.Body.Email, input.Body.Name, input.Body.Image)
	if err != nil {
		if errors.Is(err, identity.ErrBadInternalCredential) {
			return nil, huma.Error401Unauthorized("invalid internal credential")
		}
		h.log.Error("internal exchange failed", "error", err)
		return nil, huma.Error500InternalServerError("internal exchange failed")
	}

	return &ExchangeOutput{Body: ExchangeResponse{Token: token, User: toUserWire(id)}}, nil
}

func (h *Handler) me(ctx context.Context, _ *MeInput) (*MeOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("missing bearer token")
	}

	id, err := h.service.Me(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, huma.Error404NotFound("identity not found")
		}
		return nil, huma.Error500InternalServerError("lookup failed")
	}

	return &MeOutput{Body: toUserWire(id)}, nil
}

func toUserWire(id identity.Identity) UserWire {
	return UserWire{ID: id.ID, Email: id.Email, Name: id.Name, Image: id.Image}
}
