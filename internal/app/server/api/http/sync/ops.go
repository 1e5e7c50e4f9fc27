package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) pushOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-push",
		Method:      http.MethodPost,
		Path:        "/sync/push",
		Summary:     "Push a batch of local changes",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) pullOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-pull",
		Method:      http.MethodGet,
		Path:        "/sync/pull",
		Summary:     "Pull changes strictly newer than the cursor",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) fullOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-full",
		Method:      http.MethodGet,
		Path:        "/sync/full",
		Summary:     "Fetch the full non-deleted snapshot",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) resolveConflictOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-resolve-conflict",
		Method:      http.MethodPost,
		Path:        "/sync/resolve-conflict",
		Summary:     "Mark a conflict as resolved (bookkeeping only)",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listDevicesOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-list-devices",
		Method:      http.MethodGet,
		Path:        "/sync/devices",
		Summary:     "List the caller's registered devices",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) removeDeviceOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-remove-device",
		Method:      http.MethodDelete,
		Path:        "/sync/devices/{id}",
		Summary:     "Revoke a registered device",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
