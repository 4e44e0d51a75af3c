package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/moltbot/bankcore/credit"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
)

// DefaultCallTimeout bounds a single hook invocation.
const DefaultCallTimeout = 5 * time.Second

// Registry fans events out to registered hooks. Capability lists are built
// at registration time so emit paths do no type assertions.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]Hook

	initializers []Initializer
	shutdowners  []Shutdowner
	deposits     []DepositListener
	transfers    []TransferListener
	escrows      []EscrowListener
	credits      []CreditListener

	logger      *slog.Logger
	callTimeout time.Duration
}

// NewRegistry creates an empty registry. A nil logger falls back to
// slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		hooks:       make(map[string]Hook),
		logger:      logger,
		callTimeout: DefaultCallTimeout,
	}
}

// Register adds a hook and indexes its capabilities. Names must be unique.
func (r *Registry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := h.Name()
	if _, exists := r.hooks[name]; exists {
		return fmt.Errorf("hook: %q already registered", name)
	}
	r.hooks[name] = h

	if v, ok := h.(Initializer); ok {
		r.initializers = append(r.initializers, v)
	}
	if v, ok := h.(Shutdowner); ok {
		r.shutdowners = append(r.shutdowners, v)
	}
	if v, ok := h.(DepositListener); ok {
		r.deposits = append(r.deposits, v)
	}
	if v, ok := h.(TransferListener); ok {
		r.transfers = append(r.transfers, v)
	}
	if v, ok := h.(EscrowListener); ok {
		r.escrows = append(r.escrows, v)
	}
	if v, ok := h.(CreditListener); ok {
		r.credits = append(r.credits, v)
	}
	return nil
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// EmitInit runs every initializer. Unlike event emits, init failures are
// returned: a hook that cannot start should stop the engine from starting.
func (r *Registry) EmitInit(ctx context.Context) error {
	r.mu.RLock()
	hooks := r.initializers
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.call(ctx, h.OnInit); err != nil {
			return fmt.Errorf("hook: init %q: %w", h.Name(), err)
		}
	}
	return nil
}

// EmitShutdown runs every shutdowner, logging failures.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.shutdowners
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.call(ctx, h.OnShutdown); err != nil {
			r.warn(ctx, "shutdown", h.Name(), err)
		}
	}
}

// EmitDeposit notifies deposit listeners of a committed deposit.
func (r *Registry) EmitDeposit(ctx context.Context, e *entry.Entry) {
	r.mu.RLock()
	hooks := r.deposits
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.call(ctx, func(ctx context.Context) error { return h.OnDeposit(ctx, e) }); err != nil {
			r.warn(ctx, "deposit", h.Name(), err)
		}
	}
}

// EmitTransfer notifies transfer listeners of a committed transfer.
func (r *Registry) EmitTransfer(ctx context.Context, e *entry.Entry) {
	r.mu.RLock()
	hooks := r.transfers
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.call(ctx, func(ctx context.Context) error { return h.OnTransfer(ctx, e) }); err != nil {
			r.warn(ctx, "transfer", h.Name(), err)
		}
	}
}

// EscrowEvent selects which EscrowListener method an emit fans out to.
type EscrowEvent int

const (
	EscrowCreated EscrowEvent = iota
	EscrowReleased
	EscrowDisputed
)

// EmitEscrow notifies escrow listeners of a committed transition.
func (r *Registry) EmitEscrow(ctx context.Context, ev EscrowEvent, es *escrow.Escrow) {
	r.mu.RLock()
	hooks := r.escrows
	r.mu.RUnlock()

	for _, h := range hooks {
		fn := h.OnEscrowCreated
		switch ev {
		case EscrowReleased:
			fn = h.OnEscrowReleased
		case EscrowDisputed:
			fn = h.OnEscrowDisputed
		}
		if err := r.call(ctx, func(ctx context.Context) error { return fn(ctx, es) }); err != nil {
			r.warn(ctx, "escrow", h.Name(), err)
		}
	}
}

// CreditEvent selects which CreditListener method an emit fans out to.
type CreditEvent int

const (
	CreditExtended CreditEvent = iota
	CreditDrawn
	CreditRepaid
	CreditSettled
	CreditRevoked
)

// EmitCredit notifies credit listeners of a committed transition. t is nil
// for extend and revoke.
func (r *Registry) EmitCredit(ctx context.Context, ev CreditEvent, l *credit.Line, t *credit.Transaction) {
	r.mu.RLock()
	hooks := r.credits
	r.mu.RUnlock()

	for _, h := range hooks {
		var fn func(context.Context) error
		switch ev {
		case CreditExtended:
			fn = func(ctx context.Context) error { return h.OnCreditExtended(ctx, l) }
		case CreditDrawn:
			fn = func(ctx context.Context) error { return h.OnCreditDrawn(ctx, l, t) }
		case CreditRepaid:
			fn = func(ctx context.Context) error { return h.OnCreditRepaid(ctx, l, t) }
		case CreditSettled:
			fn = func(ctx context.Context) error { return h.OnCreditSettled(ctx, l, t) }
		case CreditRevoked:
			fn = func(ctx context.Context) error { return h.OnCreditRevoked(ctx, l) }
		}
		if err := r.call(ctx, fn); err != nil {
			r.warn(ctx, "credit", h.Name(), err)
		}
	}
}

// call invokes fn with a bounded deadline so a stuck hook cannot stall the
// caller forever.
func (r *Registry) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) warn(ctx context.Context, event, name string, err error) {
	r.logger.WarnContext(ctx, "hook failed",
		slog.String("event", event),
		slog.String("hook", name),
		slog.Any("error", err),
	)
}
