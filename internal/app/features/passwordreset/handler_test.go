package passwordreset_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anketolabs/anketo/internal/app/features/passwordreset"
	userstore "github.com/anketolabs/anketo/internal/app/store/users"
	"github.com/anketolabs/anketo/internal/app/system/apierr"
	"github.com/anketolabs/anketo/internal/app/system/countries"
	"github.com/anketolabs/anketo/internal/app/system/mailer"
	"github.com/anketolabs/anketo/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// fakeSender records mail instead of delivering it.
type fakeSender struct {
	sent []mailer.Email
	err  error
}

func (f *fakeSender) Send(_ context.Context, e mailer.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e)
	return nil
}

func newTestHandler(t *testing.T) (*passwordreset.Handler, *fakeSender, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	users := userstore.New(db, countries.New())
	sender := &fakeSender{}
	h := passwordreset.NewHandler(users, sender, "Anketo", 30*time.Minute, zap.NewNop())
	return h, sender, db
}

func TestHandleStart(t *testing.T) {
	handler, sender, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateUser(ctx, "forgot@example.com", "oldsecret")

	req := testutil.NewJSONRequest(t, "POST", "/password-reset/start", map[string]string{"email": "forgot@example.com"})
	rec := httptest.NewRecorder()
	handler.HandleStart(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	if sender.sent[0].To != "forgot@example.com" {
		t.Errorf("unexpected recipient %q", sender.sent[0].To)
	}
	if sender.sent[0].TextBody == "" || sender.sent[0].HTMLBody == "" {
		t.Error("expected text and HTML bodies")
	}
}

func TestHandleStart_UnknownEmail(t *testing.T) {
	handler, sender, _ := newTestHandler(t)

	req := testutil.NewJSONRequest(t, "POST", "/password-reset/start", map[string]string{"email": "nobody@example.com"})
	rec := httptest.NewRecorder()
	handler.HandleStart(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no mail sent, got %d", len(sender.sent))
	}
}

func TestHandleComplete(t *testing.T) {
	handler, _, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateUser(ctx, "resetme@example.com", "oldsecret")

	users := userstore.New(db, countries.New())
	reset, err := users.StartPasswordReset(ctx, "resetme@example.com", 0)
	if err != nil {
		t.Fatalf("StartPasswordReset failed: %v", err)
	}

	req := testutil.NewJSONRequest(t, "POST", "/password-reset/complete", map[string]string{
		"email":    "resetme@example.com",
		"code":     reset.Code,
		"password": "newsecret",
	})
	rec := httptest.NewRecorder()
	handler.HandleComplete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if _, err := users.Authenticate(ctx, "resetme@example.com", "newsecret"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestHandleComplete_Errors(t *testing.T) {
	handler, _, db := newTestHandler(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateUser(ctx, "errs@example.com", "oldsecret")

	users := userstore.New(db, countries.New())
	if _, err := users.StartPasswordReset(ctx, "errs@example.com", 0); err != nil {
		t.Fatalf("StartPasswordReset failed: %v", err)
	}

	tests := []struct {
		name     string
		body     map[string]string
		status   int
		wantCode string
	}{
		{
			"short password",
			map[string]string{"email": "errs@example.com", "code": "123456", "password": "12345"},
			http.StatusUnprocessableEntity, apierr.CodePasswordLength,
		},
		{
			"wrong code",
			map[string]string{"email": "errs@example.com", "code": "999999x", "password": "newsecret"},
			http.StatusUnprocessableEntity, apierr.CodeResetCodeInvalid,
		},
		{
			"unknown email",
			map[string]string{"email": "who@example.com", "code": "123456", "password": "newsecret"},
			http.StatusNotFound, apierr.CodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.HandleComplete(rec, testutil.NewJSONRequest(t, "POST", "/password-reset/complete", tt.body))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			var resp apierr.Response
			testutil.DecodeJSON(t, rec, &resp)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, resp.Code)
			}
		})
	}
}
