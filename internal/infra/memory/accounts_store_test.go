package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/wager-ledger-go/internal/domain"
	"github.com/boddenberg/wager-ledger-go/internal/infra/memory"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newStore() *memory.AccountStore {
	return memory.NewAccountStore(zap.NewNop())
}

func TestCreateAccount_StartsAtZero(t *testing.T) {
	s := newStore()

	acct, err := s.CreateAccount(context.Background(), "alice")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := uuid.Parse(acct.ID); err != nil {
		t.Errorf("expected uuid id, got %q", acct.ID)
	}
	if acct.Name != "alice" || acct.Balance != 0 {
		t.Errorf("unexpected account %+v", acct)
	}

	got, err := s.GetAccount(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("expected account, got %v", err)
	}
	if got.Name != "alice" || got.Balance != 0 {
		t.Errorf("unexpected snapshot %+v", got)
	}
}

func TestCreateAccount_DuplicateName(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	first, _ := s.CreateAccount(ctx, "bob")
	if _, err := s.MutateBalance(ctx, first.ID, func(b int64) (int64, error) { return b + 10, nil }); err != nil {
		t.Fatalf("mutate: %v", err)
	}

	_, err := s.CreateAccount(ctx, "bob")
	var dup *domain.ErrDuplicateName
	if !errors.As(err, &dup) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	got, _ := s.GetAccount(ctx, first.ID)
	if got.Balance != 10 {
		t.Errorf("expected first account untouched at 10, got %d", got.Balance)
	}
	if s.CountAccounts() != 1 {
		t.Errorf("expected 1 account, got %d", s.CountAccounts())
	}
}

func TestCreateAccount_NamesAreCaseSensitive(t *testing.T) {
	s := newStore()

	if _, err := s.CreateAccount(context.Background(), "Carol"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateAccount(context.Background(), "carol"); err != nil {
		t.Fatalf("expected distinct names to be accepted, got %v", err)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	s := newStore()

	_, err := s.GetAccount(context.Background(), "123")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMutateBalance(t *testing.T) {
	errAbort := errors.New("abort")

	tests := []struct {
		name    string
		fn      func(int64) (int64, error)
		want    int64
		wantErr bool
	}{
		{name: "add", fn: func(b int64) (int64, error) { return b + 5, nil }, want: 15},
		{name: "subtract to zero", fn: func(b int64) (int64, error) { return b - 10, nil }, want: 0},
		{name: "fn error aborts", fn: func(int64) (int64, error) { return 0, errAbort }, want: 10, wantErr: true},
		{name: "negative result rejected", fn: func(b int64) (int64, error) { return b - 11, nil }, want: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore()
			ctx := context.Background()
			acct, _ := s.CreateAccount(ctx, "dave")
			s.MutateBalance(ctx, acct.ID, func(int64) (int64, error) { return 10, nil })

			_, err := s.MutateBalance(ctx, acct.ID, tt.fn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}

			got, _ := s.GetAccount(ctx, acct.ID)
			if got.Balance != tt.want {
				t.Errorf("expected balance %d, got %d", tt.want, got.Balance)
			}
		})
	}
}

func TestMutateBalance_NotFound(t *testing.T) {
	s := newStore()
	called := false

	_, err := s.MutateBalance(context.Background(), "missing", func(b int64) (int64, error) {
		called = true
		return b, nil
	})

	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if called {
		t.Error("fn must not run for a missing account")
	}
}

func TestMutateBalance_ConcurrentIncrementsAreNotLost(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	acct, _ := s.CreateAccount(ctx, "eve")

	const workers = 64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.MutateBalance(ctx, acct.ID, func(b int64) (int64, error) { return b + 1, nil })
		}()
	}
	wg.Wait()

	got, _ := s.GetAccount(ctx, acct.ID)
	if got.Balance != workers {
		t.Errorf("expected %d, got %d", workers, got.Balance)
	}
}

func TestMutateBalance_DistinctAccountsDoNotBlock(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	a, _ := s.CreateAccount(ctx, "a")
	b, _ := s.CreateAccount(ctx, "b")

	entered := make(chan struct{})
	release := make(chan struct{})
	go s.MutateBalance(ctx, a.ID, func(bal int64) (int64, error) {
		close(entered)
		<-release
		return bal, nil
	})
	<-entered
	defer close(release)

	done := make(chan struct{})
	go func() {
		s.MutateBalance(ctx, b.ID, func(bal int64) (int64, error) { return bal + 1, nil })
		s.CreateAccount(ctx, "c")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mutation on b or account creation blocked behind a held lock on a")
	}
}
