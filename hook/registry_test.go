package hook

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/moltbot/bankcore/credit"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
)

// recorder implements every capability and records what it saw.
type recorder struct {
	name   string
	events []string
	fail   error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) record(ev string) error {
	r.events = append(r.events, ev)
	return r.fail
}

func (r *recorder) OnInit(context.Context) error     { return r.record("init") }
func (r *recorder) OnShutdown(context.Context) error { return r.record("shutdown") }

func (r *recorder) OnDeposit(_ context.Context, _ *entry.Entry) error  { return r.record("deposit") }
func (r *recorder) OnTransfer(_ context.Context, _ *entry.Entry) error { return r.record("transfer") }

func (r *recorder) OnEscrowCreated(_ context.Context, _ *escrow.Escrow) error {
	return r.record("escrow_created")
}
func (r *recorder) OnEscrowReleased(_ context.Context, _ *escrow.Escrow) error {
	return r.record("escrow_released")
}
func (r *recorder) OnEscrowDisputed(_ context.Context, _ *escrow.Escrow) error {
	return r.record("escrow_disputed")
}

func (r *recorder) OnCreditExtended(_ context.Context, _ *credit.Line) error {
	return r.record("credit_extended")
}
func (r *recorder) OnCreditDrawn(_ context.Context, _ *credit.Line, _ *credit.Transaction) error {
	return r.record("credit_drawn")
}
func (r *recorder) OnCreditRepaid(_ context.Context, _ *credit.Line, _ *credit.Transaction) error {
	return r.record("credit_repaid")
}
func (r *recorder) OnCreditSettled(_ context.Context, _ *credit.Line, _ *credit.Transaction) error {
	return r.record("credit_settled")
}
func (r *recorder) OnCreditRevoked(_ context.Context, _ *credit.Line) error {
	return r.record("credit_revoked")
}

// depositOnly implements a single capability.
type depositOnly struct {
	seen int
}

func (d *depositOnly) Name() string                                  { return "deposit-only" }
func (d *depositOnly) OnDeposit(context.Context, *entry.Entry) error { d.seen++; return nil }

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry(slog.Default())
	if err := r.Register(&recorder{name: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&recorder{name: "a"}); err == nil {
		t.Error("duplicate name accepted")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestEmitDispatchesByCapability(t *testing.T) {
	r := NewRegistry(slog.Default())
	all := &recorder{name: "all"}
	dep := &depositOnly{}
	if err := r.Register(all); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(dep); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx := context.Background()
	r.EmitDeposit(ctx, entry.New(entry.TypeDeposit, 1))
	r.EmitTransfer(ctx, entry.New(entry.TypeTransfer, 1))
	r.EmitEscrow(ctx, EscrowDisputed, escrow.New("a", "b", 1, ""))
	line := credit.NewLine("a", "b", 1)
	r.EmitCredit(ctx, CreditDrawn, line, credit.NewTransaction(line.ID, credit.TransactionDraw, 1, ""))
	r.EmitCredit(ctx, CreditRevoked, line, nil)

	want := []string{"deposit", "transfer", "escrow_disputed", "credit_drawn", "credit_revoked"}
	if len(all.events) != len(want) {
		t.Fatalf("events = %v, want %v", all.events, want)
	}
	for i, ev := range want {
		if all.events[i] != ev {
			t.Errorf("event[%d] = %q, want %q", i, all.events[i], ev)
		}
	}
	if dep.seen != 1 {
		t.Errorf("deposit-only saw %d events, want 1", dep.seen)
	}
}

func TestInitFailureStopsStartup(t *testing.T) {
	r := NewRegistry(slog.Default())
	boom := errors.New("boom")
	if err := r.Register(&recorder{name: "bad", fail: boom}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.EmitInit(context.Background()); !errors.Is(err, boom) {
		t.Errorf("EmitInit = %v, want boom", err)
	}
}

func TestEventFailuresAreSwallowed(t *testing.T) {
	r := NewRegistry(slog.Default())
	bad := &recorder{name: "bad", fail: errors.New("boom")}
	good := &depositOnly{}
	if err := r.Register(bad); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(good); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// A failing listener is logged, and the rest still run.
	r.EmitDeposit(context.Background(), entry.New(entry.TypeDeposit, 1))
	if good.seen != 1 {
		t.Errorf("good listener saw %d events, want 1", good.seen)
	}
}
