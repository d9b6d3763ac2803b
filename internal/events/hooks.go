package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sentinel-toxicity/internal/metrics"

	"go.uber.org/zap"
)

type Handler[E any] func(ctx context.Context, event E) error

// HookError ties a handler failure to the name it was registered under.
type HookError struct {
	Hook string
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %s: %v", e.Hook, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

type hook[E any] struct {
	name   string
	handle Handler[E]
}

// Hooks runs handlers in registration order. A failing or panicking handler
// never stops the ones after it.
type Hooks[E any] struct {
	mu     sync.RWMutex
	hooks  []hook[E]
	logger *zap.Logger
}

func New[E any](logger *zap.Logger) *Hooks[E] {
	return &Hooks[E]{logger: logger}
}

func (h *Hooks[E]) Register(name string, handler Handler[E]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook[E]{name: name, handle: handler})
}

func (h *Hooks[E]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hooks)
}

// Dispatch returns every handler failure joined together, each wrapped in a
// *HookError.
func (h *Hooks[E]) Dispatch(ctx context.Context, event E) error {
	h.mu.RLock()
	hooks := make([]hook[E], len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.RUnlock()

	var errs []error
	for _, item := range hooks {
		if err := h.run(ctx, item, event); err != nil {
			metrics.RecordHookFailure(item.name)
			errs = append(errs, &HookError{Hook: item.name, Err: err})
		}
	}
	return errors.Join(errs...)
}

func (h *Hooks[E]) run(ctx context.Context, item hook[E], event E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("hook panicked", zap.String("hook", item.name), zap.Any("panic", r), zap.Stack("stack"))
			err = &PanicError{Value: r}
		}
	}()
	if err = item.handle(ctx, event); err != nil {
		h.logger.Warn("hook failed", zap.String("hook", item.name), zap.Error(err))
	}
	return err
}
