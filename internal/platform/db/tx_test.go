package db

import (
	"context"
	"errors"
	"testing"
)

func TestAfterCommit_RunsImmediatelyOutsideTx(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(context.Context) { ran = true })
	if !ran {
		t.Fatal("expected hook to run immediately")
	}
}

func TestAfterCommit_DeferredUntilCommit(t *testing.T) {
	st := &txState{}
	ctx := context.WithValue(context.Background(), txKey{}, st)

	ran := false
	AfterCommit(ctx, func(context.Context) { ran = true })
	if ran {
		t.Fatal("hook ran before commit")
	}
	if len(st.hooks) != 1 {
		t.Fatalf("expected 1 pending hook, got %d", len(st.hooks))
	}
	if !InTx(ctx) {
		t.Error("expected InTx to report an open transaction")
	}
}

func TestNoTx_PropagatesError(t *testing.T) {
	want := errors.New("boom")
	if err := (NoTx{}).WithTx(context.Background(), func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestHookTx(t *testing.T) {
	ran := 0
	err := (HookTx{}).WithTx(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(context.Context) { ran++ })
		return (HookTx{}).WithTx(ctx, func(ctx context.Context) error {
			AfterCommit(ctx, func(context.Context) { ran++ })
			if ran != 0 {
				t.Fatal("hook ran before commit")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if ran != 2 {
		t.Fatalf("expected 2 hooks after commit, got %d", ran)
	}

	want := errors.New("boom")
	ran = 0
	err = (HookTx{}).WithTx(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func(context.Context) { ran++ })
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if ran != 0 {
		t.Fatalf("expected hooks dropped on rollback, got %d", ran)
	}
}
