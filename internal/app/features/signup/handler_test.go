package signup_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anketolabs/anketo/internal/app/features/signup"
	userstore "github.com/anketolabs/anketo/internal/app/store/users"
	"github.com/anketolabs/anketo/internal/app/system/apierr"
	"github.com/anketolabs/anketo/internal/app/system/countries"
	"github.com/anketolabs/anketo/internal/app/system/indexes"
	"github.com/anketolabs/anketo/internal/app/system/sanitize"
	"github.com/anketolabs/anketo/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*signup.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	users := userstore.New(db, countries.New())
	return signup.NewHandler(users, zap.NewNop()), db
}

func TestHandleSignup(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := testutil.NewJSONRequest(t, "POST", "/signup", map[string]string{
		"email":    "new@example.com",
		"password": "secret1",
	})
	rec := httptest.NewRecorder()
	handler.HandleSignup(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got sanitize.PublicUser
	testutil.DecodeJSON(t, rec, &got)
	if got.Email != "new@example.com" {
		t.Errorf("unexpected email %q", got.Email)
	}
	if got.Completed {
		t.Error("expected completed false")
	}
}

func TestHandleSignup_DuplicateEmail(t *testing.T) {
	handler, _ := newTestHandler(t)

	body := map[string]string{"email": "dup@example.com", "password": "secret1"}

	rec := httptest.NewRecorder()
	handler.HandleSignup(rec, testutil.NewJSONRequest(t, "POST", "/signup", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first signup failed: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.HandleSignup(rec, testutil.NewJSONRequest(t, "POST", "/signup", body))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var resp apierr.Response
	testutil.DecodeJSON(t, rec, &resp)
	if resp.Code != apierr.CodeEmailDuplication {
		t.Errorf("expected code %q, got %q", apierr.CodeEmailDuplication, resp.Code)
	}
}

func TestHandleSignup_Validation(t *testing.T) {
	handler, _ := newTestHandler(t)

	tests := []struct {
		name     string
		body     map[string]string
		status   int
		wantCode string
	}{
		{"bad email", map[string]string{"email": "nope", "password": "secret1"}, http.StatusUnprocessableEntity, apierr.CodeEmailValidation},
		{"short password", map[string]string{"email": "ok@example.com", "password": "12345"}, http.StatusUnprocessableEntity, apierr.CodePasswordLength},
		{"missing email", map[string]string{"password": "secret1"}, http.StatusBadRequest, apierr.CodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.HandleSignup(rec, testutil.NewJSONRequest(t, "POST", "/signup", tt.body))
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

func TestHandleSignup_AlreadySignedIn(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := testutil.NewJSONRequest(t, "POST", "/signup", map[string]string{
		"email":    "second@example.com",
		"password": "secret1",
	})
	req = testutil.WithUser(req, testutil.MemberUser())
	rec := httptest.NewRecorder()
	handler.HandleSignup(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp apierr.Response
	testutil.DecodeJSON(t, rec, &resp)
	if resp.Code != apierr.CodeAlreadyAuthenticated {
		t.Errorf("expected code %q, got %q", apierr.CodeAlreadyAuthenticated, resp.Code)
	}
}
