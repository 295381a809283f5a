package ctxkeys

import (
	"context"

	"github.com/templui/docclinic/internal/config"
	"github.com/templui/docclinic/internal/service"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	SessionKey contextKey = "session"
	ConfigKey  contextKey = "config"
)

// Session returns the verified session claims, or nil for anonymous requests.
func Session(ctx context.Context) *service.SessionClaims {
	claims, _ := ctx.Value(SessionKey).(*service.SessionClaims)
	return claims
}

func WithSession(ctx context.Context, claims *service.SessionClaims) context.Context {
	return context.WithValue(ctx, SessionKey, claims)
}

func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ConfigKey).(*config.Config)
	return cfg
}

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, ConfigKey, cfg)
}
