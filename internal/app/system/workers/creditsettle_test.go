package workers_test

import (
	"testing"
	"time"

	paymentstore "github.com/anketolabs/anketo/internal/app/store/payments"
	userstore "github.com/anketolabs/anketo/internal/app/store/users"
	"github.com/anketolabs/anketo/internal/app/system/countries"
	"github.com/anketolabs/anketo/internal/app/system/workers"
	"github.com/anketolabs/anketo/internal/testutil"
	"go.uber.org/zap"
)

func TestCreditSettle_SweepsMaturedPayments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(db, countries.New())
	payments := paymentstore.New(db)

	user := fixtures.CreateCompletedUser(ctx, "sweep@example.com", "secret1")
	campaign := fixtures.CreateCampaign(ctx, "Sweep Survey", 10)

	if err := users.AddWaitingCredit(ctx, user.ID, campaign.ID, 10); err != nil {
		t.Fatalf("AddWaitingCredit failed: %v", err)
	}
	if _, err := payments.CreateWaiting(ctx, user.ID, campaign.ID, 10); err != nil {
		t.Fatalf("CreateWaiting failed: %v", err)
	}

	// A zero hold period matures the payment immediately; a short interval
	// lets one tick fire before Stop.
	w := workers.NewCreditSettle(users, payments, zap.NewNop(), 20*time.Millisecond, 0)
	w.Start()
	time.Sleep(100 * time.Millisecond)
	w.Stop()

	u, err := users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if u.WaitingCredit != 0 {
		t.Errorf("expected waiting credit drained, got %d", u.WaitingCredit)
	}
	if u.Credit != 10 || u.OverallCredit != 10 {
		t.Errorf("expected settled credit 10, got %d/%d", u.Credit, u.OverallCredit)
	}

	got, err := payments.ListForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(got) != 1 || got[0].Status != "settled" {
		t.Errorf("expected payment marked settled, got %+v", got)
	}
	if got[0].SettledAt == nil {
		t.Error("expected settled_at to be set")
	}
}

func TestCreditSettle_HoldsImmaturePayments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(db, countries.New())
	payments := paymentstore.New(db)

	user := fixtures.CreateCompletedUser(ctx, "hold@example.com", "secret1")
	campaign := fixtures.CreateCampaign(ctx, "Hold Survey", 10)

	if err := users.AddWaitingCredit(ctx, user.ID, campaign.ID, 10); err != nil {
		t.Fatalf("AddWaitingCredit failed: %v", err)
	}
	if _, err := payments.CreateWaiting(ctx, user.ID, campaign.ID, 10); err != nil {
		t.Fatalf("CreateWaiting failed: %v", err)
	}

	w := workers.NewCreditSettle(users, payments, zap.NewNop(), 20*time.Millisecond, time.Hour)
	w.Start()
	time.Sleep(100 * time.Millisecond)
	w.Stop()

	u, err := users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if u.WaitingCredit != 10 {
		t.Errorf("expected waiting credit held at 10, got %d", u.WaitingCredit)
	}
	if u.Credit != 0 {
		t.Errorf("expected no settled credit yet, got %d", u.Credit)
	}
}

func TestCreditSettle_StartStop(t *testing.T) {
	db := testutil.SetupTestDB(t)

	users := userstore.New(db, countries.New())
	payments := paymentstore.New(db)

	w := workers.NewCreditSettle(users, payments, zap.NewNop(), time.Minute, time.Hour)
	w.Start()
	w.Stop()
}
