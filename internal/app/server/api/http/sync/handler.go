package sync

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"daylog/internal/domain/device"
	"daylog/internal/domain/sync"
)

type Handler struct {
	service    sync.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sync.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{service: service, log: log, middleware: middleware}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.pushOp(), h.push)
	huma.Register(api, h.pullOp(), h.pull)
	huma.Register(api, h.fullOp(), h.full)
	huma.Register(api, h.resolveConflictOp(), h.resolveConflict)
	huma.Register(api, h.listDevicesOp(), h.listDevices)
	huma.Register(api, h.removeDeviceOp(), h.removeDevice)
}

func (h *Handler) push(ctx context.Context, input *pushInput) (*pushOutput, error) {
	meta := sync.DeviceMeta{Platform: devicePlatform(input.Body.DevicePlatform), Label: input.Body.DeviceLabel}
	resp, err := h.service.Push(ctx, input.Body.ClientID, input.Body, meta)
	if err != nil {
		h.log.Error("push failed", "error", err)
		return nil, huma.Error500InternalServerError("push failed")
	}
	return &pushOutput{Body: resp}, nil
}

func (h *Handler) pull(ctx context.Context, input *pullInput) (*pullOutput, error) {
	resp, err := h.service.Pull(ctx, input.Since)
	if err != nil {
		h.log.Error("pull failed", "error", err)
		return nil, huma.Error500InternalServerError("pull failed")
	}
	return &pullOutput{Body: resp}, nil
}

func (h *Handler) full(ctx context.Context, _ *fullInput) (*fullOutput, error) {
	resp, err := h.service.Full(ctx)
	if err != nil {
		h.log.Error("full sync failed", "error", err)
		return nil, huma.Error500InternalServerError("full sync failed")
	}
	return &fullOutput{Body: resp}, nil
}

func (h *Handler) resolveConflict(ctx context.Context, input *resolveConflictInput) (*resolveConflictOutput, error) {
	resp, err := h.service.ResolveConflict(ctx, input.Body)
	if err != nil {
		if errors.Is(err, sync.ErrConflictNotFound) {
			return nil, huma.Error404NotFound("conflict not found")
		}
		h.log.Error("resolve conflict failed", "error", err)
		return nil, huma.Error500InternalServerError("resolve conflict failed")
	}
	return &resolveConflictOutput{Body: resp}, nil
}

func (h *Handler) listDevices(ctx context.Context, _ *listDevicesInput) (*listDevicesOutput, error) {
	devices, err := h.service.ListDevices(ctx)
	if err != nil {
		h.log.Error("list devices failed", "error", err)
		return nil, huma.Error500InternalServerError("list devices failed")
	}
	return &listDevicesOutput{Body: devices}, nil
}

func (h *Handler) removeDevice(ctx context.Context, input *removeDeviceInput) (*removeDeviceOutput, error) {
	if err := h.service.RemoveDevice(ctx, input.ID); err != nil {
		if errors.Is(err, sync.ErrDeviceNotFound) {
			return nil, huma.Error404NotFound("device not found")
		}
		h.log.Error("remove device failed", "error", err)
		return nil, huma.Error500InternalServerError("remove device failed")
	}
	out := &removeDeviceOutput{}
	out.Body.Success = true
	return out, nil
}

func devicePlatform(raw string) device.Platform {
	switch device.Platform(raw) {
	case device.PlatformWeb, device.PlatformDesktop, device.PlatformMobile:
		return device.Platform(raw)
	default:
		return device.PlatformUnknown
	}
}
