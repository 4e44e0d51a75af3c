package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	bankcore "github.com/moltbot/bankcore"
	"github.com/moltbot/bankcore/credit"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
	"github.com/moltbot/bankcore/store"
)

func TestTxCommitAndRollback(t *testing.T) {
	s := New()
	ctx := context.Background()

	// A failing unit of work leaves nothing behind.
	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.AccountForUpdate(ctx, "a"); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, "a", 500); err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, entry.New(entry.TypeDeposit, 500)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx = %v, want boom", err)
	}
	if _, err := s.GetAccount(ctx, "a"); !errors.Is(err, bankcore.ErrAccountNotFound) {
		t.Errorf("rolled-back account = %v, want ErrAccountNotFound", err)
	}
	if _, total, err := s.Entries(ctx, entry.ListOpts{}); err != nil || total != 0 {
		t.Errorf("entries after rollback = %d (%v), want 0", total, err)
	}

	// The same work committing is visible to readers.
	err = s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.AccountForUpdate(ctx, "a"); err != nil {
			return err
		}
		return tx.SetBalance(ctx, "a", 500)
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}
	a, err := s.GetAccount(ctx, "a")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if a.Balance != 500 {
		t.Errorf("balance = %d, want 500", a.Balance)
	}
}

func TestTxStagedReadsItsOwnWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		e := entry.New(entry.TypeDeposit, 100)
		e.IdempotencyKey = "k1"
		if err := tx.AppendEntry(ctx, e); err != nil {
			return err
		}
		// Staged entry is visible by key inside the same unit of work.
		found, err := tx.EntryByIdempotencyKey(ctx, "k1")
		if err != nil {
			return err
		}
		if found == nil || found.ID != e.ID {
			t.Error("staged entry not found by idempotency key")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}

	// And committed entries remain visible to later units of work.
	err = s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		found, err := tx.EntryByIdempotencyKey(ctx, "k1")
		if err != nil {
			return err
		}
		if found == nil {
			t.Error("committed entry not found by idempotency key")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}
}

func TestLockTimeout(t *testing.T) {
	s := New(WithLockTimeout(50 * time.Millisecond))
	ctx := context.Background()

	hold := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
			close(hold)
			<-release
			return nil
		})
	}()
	<-hold

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error { return nil })
	if !errors.Is(err, bankcore.ErrLockTimeout) {
		t.Errorf("contended RunInTx = %v, want ErrLockTimeout", err)
	}
	close(release)
}

func TestClosedStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := s.Ping(ctx); !errors.Is(err, bankcore.ErrStoreClosed) {
		t.Errorf("Ping = %v, want ErrStoreClosed", err)
	}
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error { return nil })
	if !errors.Is(err, bankcore.ErrStoreClosed) {
		t.Errorf("RunInTx = %v, want ErrStoreClosed", err)
	}
	if _, err := s.GetAccount(ctx, "a"); !errors.Is(err, bankcore.ErrStoreClosed) {
		t.Errorf("GetAccount = %v, want ErrStoreClosed", err)
	}
}

func TestClonesIsolateCallers(t *testing.T) {
	s := New()
	ctx := context.Background()

	es := escrow.New("a", "b", 100, "")
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateEscrow(ctx, es)
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}

	got, err := s.GetEscrow(ctx, es.ID)
	if err != nil {
		t.Fatalf("GetEscrow: %v", err)
	}
	got.Status = escrow.StatusReleased // mutate the returned copy

	again, err := s.GetEscrow(ctx, es.ID)
	if err != nil {
		t.Fatalf("GetEscrow: %v", err)
	}
	if again.Status != escrow.StatusActive {
		t.Error("mutating a returned escrow leaked into the store")
	}
}

func TestHasActiveCreditLineSeesStagedState(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		ok, err := tx.HasActiveCreditLine(ctx, "g1", "g2")
		if err != nil {
			return err
		}
		if ok {
			t.Error("empty store reports an active line")
		}

		if err := tx.CreateCreditLine(ctx, credit.NewLine("g1", "g2", 1000)); err != nil {
			return err
		}
		ok, err = tx.HasActiveCreditLine(ctx, "g1", "g2")
		if err != nil {
			return err
		}
		if !ok {
			t.Error("staged line not visible inside its unit of work")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}

	// Revoking the committed line frees the pair for later units of work.
	lines, err := s.CreditLinesByGrantor(ctx, "g1")
	if err != nil || len(lines) != 1 {
		t.Fatalf("CreditLinesByGrantor = %d lines (%v), want 1", len(lines), err)
	}
	err = s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		l, err := tx.CreditLineForUpdate(ctx, lines[0].ID)
		if err != nil {
			return err
		}
		l.Status = credit.StatusRevoked
		if err := tx.UpdateCreditLine(ctx, l); err != nil {
			return err
		}
		ok, err := tx.HasActiveCreditLine(ctx, "g1", "g2")
		if err != nil {
			return err
		}
		if ok {
			t.Error("revoked line still reported active in the same unit of work")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}
}

func TestEntriesPagination(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for i := 1; i <= 7; i++ {
			e := entry.New(entry.TypeDeposit, int64(i))
			e.ToAccount = "a"
			if err := tx.AppendEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}

	page, total, err := s.EntriesByPrincipal(ctx, "a", entry.ListOpts{Page: 2, Limit: 3})
	if err != nil {
		t.Fatalf("EntriesByPrincipal: %v", err)
	}
	if total != 7 {
		t.Errorf("total = %d, want 7", total)
	}
	if len(page) != 3 {
		t.Fatalf("page size = %d, want 3", len(page))
	}
	// Newest first: page 2 of limit 3 holds amounts 4, 3, 2.
	if page[0].Amount != 4 || page[2].Amount != 2 {
		t.Errorf("page amounts = %d..%d, want 4..2", page[0].Amount, page[2].Amount)
	}

	// Past the end is an empty page, not an error.
	page, total, err = s.EntriesByPrincipal(ctx, "a", entry.ListOpts{Page: 5, Limit: 3})
	if err != nil {
		t.Fatalf("EntriesByPrincipal: %v", err)
	}
	if total != 7 || len(page) != 0 {
		t.Errorf("past-end page = %d entries (total %d), want 0 and 7", len(page), total)
	}
}
