package middleware

import (
	"github.com/danielgtaylor/huma/v2"
)

// Container collects per-route middleware between handler registrations; api.go
// calls Add for every cross-cutting concern a route needs, then GetAllAndClear
// right before huma.Register so the next route starts from an empty slice.
type Container struct {
	huma.Middlewares
}

func NewContainer() *Container {
	return &Container{
		Middlewares: make(huma.Middlewares, 0),
	}
}

func (mc *Container) Add(middleware func(ctx huma.Context, next func(huma.Context))) {
	mc.Middlewares = append(mc.Middlewares, middleware)
}

func (mc *Container) GetAllAndClear() huma.Middlewares {
	result := mc.Middlewares
	mc.Middlewares = nil
	return result
}
