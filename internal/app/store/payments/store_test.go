package paymentstore_test

import (
	"errors"
	"testing"
	"time"

	paymentstore "github.com/anketolabs/anketo/internal/app/store/payments"
	"github.com/anketolabs/anketo/internal/app/system/indexes"
	"github.com/anketolabs/anketo/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestStore(t *testing.T) *paymentstore.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return paymentstore.New(db)
}

func TestStore_CreateWaiting(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	campaignID := primitive.NewObjectID()

	p, err := store.CreateWaiting(ctx, userID, campaignID, 10)
	if err != nil {
		t.Fatalf("CreateWaiting failed: %v", err)
	}
	if p.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if p.Status != "waiting" {
		t.Errorf("expected status waiting, got %q", p.Status)
	}
	if p.Amount != 10 {
		t.Errorf("expected amount 10, got %d", p.Amount)
	}
	if p.SettledAt != nil {
		t.Error("expected settled_at unset")
	}

	if _, err := store.CreateWaiting(ctx, userID, campaignID, 0); !errors.Is(err, paymentstore.ErrBadInput) {
		t.Errorf("expected ErrBadInput for zero amount, got %v", err)
	}
}

func TestStore_ListWaitingOlderThan(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	first, err := store.CreateWaiting(ctx, userID, primitive.NewObjectID(), 5)
	if err != nil {
		t.Fatalf("CreateWaiting failed: %v", err)
	}
	// Space the timestamps past the BSON datetime millisecond resolution
	// so the sort order is deterministic.
	time.Sleep(5 * time.Millisecond)
	second, err := store.CreateWaiting(ctx, userID, primitive.NewObjectID(), 7)
	if err != nil {
		t.Fatalf("CreateWaiting failed: %v", err)
	}

	// A cutoff in the future matures everything, oldest first.
	due, err := store.ListWaitingOlderThan(ctx, time.Now().Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("ListWaitingOlderThan failed: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due payments, got %d", len(due))
	}
	if due[0].ID != first.ID || due[1].ID != second.ID {
		t.Error("expected oldest payment first")
	}

	// A cutoff in the past matures nothing.
	none, err := store.ListWaitingOlderThan(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("ListWaitingOlderThan failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no due payments, got %d", len(none))
	}

	// Settled payments drop out of the scan.
	if err := store.MarkSettled(ctx, first.ID); err != nil {
		t.Fatalf("MarkSettled failed: %v", err)
	}
	due, err = store.ListWaitingOlderThan(ctx, time.Now().Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("ListWaitingOlderThan failed: %v", err)
	}
	if len(due) != 1 || due[0].ID != second.ID {
		t.Errorf("expected only the unsettled payment, got %d", len(due))
	}
}

func TestStore_MarkSettled(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, err := store.CreateWaiting(ctx, primitive.NewObjectID(), primitive.NewObjectID(), 5)
	if err != nil {
		t.Fatalf("CreateWaiting failed: %v", err)
	}

	if err := store.MarkSettled(ctx, p.ID); err != nil {
		t.Fatalf("MarkSettled failed: %v", err)
	}
	// Settling twice finds no waiting document.
	if err := store.MarkSettled(ctx, p.ID); !errors.Is(err, paymentstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second settle, got %v", err)
	}
	if err := store.MarkSettled(ctx, primitive.NewObjectID()); !errors.Is(err, paymentstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown payment, got %v", err)
	}
}

func TestStore_ListForUser(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mine := primitive.NewObjectID()
	other := primitive.NewObjectID()
	if _, err := store.CreateWaiting(ctx, mine, primitive.NewObjectID(), 5); err != nil {
		t.Fatalf("CreateWaiting failed: %v", err)
	}
	if _, err := store.CreateWaiting(ctx, mine, primitive.NewObjectID(), 7); err != nil {
		t.Fatalf("CreateWaiting failed: %v", err)
	}
	if _, err := store.CreateWaiting(ctx, other, primitive.NewObjectID(), 9); err != nil {
		t.Fatalf("CreateWaiting failed: %v", err)
	}

	got, err := store.ListForUser(ctx, mine)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(got))
	}
	for _, p := range got {
		if p.UserID != mine {
			t.Errorf("expected only own payments, got user %s", p.UserID.Hex())
		}
	}
}
