package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Env is the execution environment a worker establishes once at start
// and hands to every job it runs.
type Env struct {
	ID         int
	Logger     *zap.Logger
	ScratchDir string
}

// ErrNoEnv is returned by code that must run inside a worker.
var ErrNoEnv = errors.New("no worker environment in context")

type envKey struct{}

// ContextWithEnv stores env in ctx.
func ContextWithEnv(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// EnvFromContext returns the worker env, or false when ctx was not created by a worker.
func EnvFromContext(ctx context.Context) (*Env, bool) {
	env, ok := ctx.Value(envKey{}).(*Env)
	return env, ok && env != nil
}

// RequireEnv is EnvFromContext for callers that cannot run outside a worker.
func RequireEnv(ctx context.Context) (*Env, error) {
	env, ok := EnvFromContext(ctx)
	if !ok {
		return nil, ErrNoEnv
	}
	return env, nil
}
