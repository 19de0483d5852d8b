package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/anketolabs/anketo/internal/app/store/users"
	"github.com/anketolabs/anketo/internal/app/system/countries"
	"github.com/anketolabs/anketo/internal/app/system/indexes"
	"github.com/anketolabs/anketo/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newTestStore(t *testing.T) (*userstore.Store, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return userstore.New(db, countries.New()), db
}

func TestStore_Create(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, userstore.NewUser{
		Email:    "  New.User@Example.COM ",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Email != "new.user@example.com" {
		t.Errorf("expected normalized email, got %q", created.Email)
	}
	if created.PasswordHash == "" || created.PasswordHash == "secret1" {
		t.Error("expected password to be hashed")
	}
	if !created.AgreementApproved {
		t.Error("expected agreement_approved to default to true")
	}
	if created.Completed {
		t.Error("expected completed to default to false")
	}
	if created.Role != "member" {
		t.Errorf("expected role 'member', got %q", created.Role)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, userstore.NewUser{Email: "dup@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// Same address in a different case still collides after normalization.
	_, err := store.Create(ctx, userstore.NewUser{Email: "DUP@Example.com", Password: "secret2"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"empty email", "", "secret1", userstore.ErrBadInput},
		{"malformed email", "not-an-email", "secret1", userstore.ErrEmailInvalid},
		{"five char password", "short@example.com", "12345", userstore.ErrPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, userstore.NewUser{Email: tt.email, Password: tt.password})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	// Six characters is the accepted minimum.
	if _, err := store.Create(ctx, userstore.NewUser{Email: "six@example.com", Password: "123456"}); err != nil {
		t.Errorf("six char password should be accepted, got %v", err)
	}
}

func TestStore_Create_InvitorCode(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	invitor, err := store.Create(ctx, userstore.NewUser{Email: "invitor@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Create invitor failed: %v", err)
	}

	invited, err := store.Create(ctx, userstore.NewUser{
		Email:       "invited@example.com",
		Password:    "secret1",
		InvitorCode: invitor.ID.Hex(),
	})
	if err != nil {
		t.Fatalf("Create invited failed: %v", err)
	}
	if invited.Invitor == nil || *invited.Invitor != invitor.ID {
		t.Error("expected invitor to be recorded")
	}

	// A malformed code is silently discarded, not rejected.
	loner, err := store.Create(ctx, userstore.NewUser{
		Email:       "loner@example.com",
		Password:    "secret1",
		InvitorCode: "not-a-hex-id",
	})
	if err != nil {
		t.Fatalf("Create with bad invitor code failed: %v", err)
	}
	if loner.Invitor != nil {
		t.Error("expected malformed invitor code to be discarded")
	}
}

func TestStore_Authenticate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, userstore.NewUser{Email: "auth@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	u, err := store.Authenticate(ctx, "Auth@Example.com", "secret1")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if u.Email != "auth@example.com" {
		t.Errorf("unexpected email %q", u.Email)
	}

	if _, err := store.Authenticate(ctx, "auth@example.com", "wrongpw"); !errors.Is(err, userstore.ErrPasswordMismatch) {
		t.Errorf("expected ErrPasswordMismatch, got %v", err)
	}
	if _, err := store.Authenticate(ctx, "nobody@example.com", "secret1"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Authenticate_RewritesLegacyGender(t *testing.T) {
	store, db := newTestStore(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateUser(ctx, "legacy@example.com", "secret1")

	// Plant a legacy gender value the way old records carried it.
	_, err := db.Collection("users").UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"gender": "erkek"}})
	if err != nil {
		t.Fatalf("failed to plant legacy gender: %v", err)
	}

	u, err := store.Authenticate(ctx, "legacy@example.com", "secret1")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if u.Gender != "male" {
		t.Errorf("expected rewritten gender 'male', got %q", u.Gender)
	}

	// The rewrite is persisted, not just in the returned document.
	stored, err := store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Gender != "male" {
		t.Errorf("expected persisted gender 'male', got %q", stored.Gender)
	}
}

func TestStore_Complete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, userstore.NewUser{Email: "complete@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	profile := userstore.Profile{
		Name:      "  Ayşe Yılmaz  ",
		Phone:     "+90 555 111 22 33",
		Gender:    "female",
		BirthYear: 1990,
		Country:   "Türkiye",
	}
	if err := store.Complete(ctx, created.ID, profile); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	u, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !u.Completed {
		t.Error("expected completed to be true")
	}
	if u.Name != "Ayşe Yılmaz" {
		t.Errorf("expected trimmed name, got %q", u.Name)
	}
	if u.NameCI == "" {
		t.Error("expected name_ci to be set")
	}
	if u.Phone != "+905551112233" {
		t.Errorf("expected whitespace-stripped phone, got %q", u.Phone)
	}
	if u.Country != "TR" {
		t.Errorf("expected country resolved to alpha-2 TR, got %q", u.Country)
	}

	// Completion is one-time.
	if err := store.Complete(ctx, created.ID, profile); !errors.Is(err, userstore.ErrAlreadyCompleted) {
		t.Errorf("expected ErrAlreadyCompleted, got %v", err)
	}
}

func TestStore_Complete_Validation(t *testing.T) {
	store, db := newTestStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, userstore.NewUser{Email: "cv@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	valid := userstore.Profile{
		Name:      "Test User",
		Phone:     "+905551112233",
		Gender:    "male",
		BirthYear: 1990,
		Country:   "TR",
	}

	tests := []struct {
		name   string
		mutate func(p *userstore.Profile)
		want   error
	}{
		{"blank name", func(p *userstore.Profile) { p.Name = "   " }, userstore.ErrBadInput},
		{"bad phone", func(p *userstore.Profile) { p.Phone = "12ab" }, userstore.ErrPhoneInvalid},
		{"bad gender", func(p *userstore.Profile) { p.Gender = "unknown" }, userstore.ErrBadInput},
		{"birth year below range", func(p *userstore.Profile) { p.BirthYear = 1919 }, userstore.ErrBadInput},
		{"birth year above range", func(p *userstore.Profile) { p.BirthYear = 2021 }, userstore.ErrBadInput},
		{"unknown country", func(p *userstore.Profile) { p.Country = "Atlantis" }, userstore.ErrBadInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := store.Complete(ctx, created.ID, p); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	// The range bounds themselves are accepted.
	for _, year := range []int{1920, 2020} {
		p := valid
		p.BirthYear = year
		err := store.Complete(ctx, created.ID, p)
		if errors.Is(err, userstore.ErrBadInput) {
			t.Errorf("birth year %d should be accepted, got %v", year, err)
		}
		// Reset so the next bound can be tried.
		_, uerr := db.Collection("users").UpdateOne(ctx,
			bson.M{"_id": created.ID},
			bson.M{"$set": bson.M{"completed": false}})
		if uerr != nil {
			t.Fatalf("failed to reset completed flag: %v", uerr)
		}
	}

	if err := store.Complete(ctx, primitive.NewObjectID(), valid); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestStore_Update(t *testing.T) {
	store, db := newTestStore(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateCompletedUser(ctx, "update@example.com", "secret1")

	err := store.Update(ctx, user.ID, userstore.ProfileUpdate{
		Name:  "Renamed User",
		Phone: "+905559998877",
		City:  "İstanbul",
		Town:  "Kadıköy",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	u, err := store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if u.Name != "Renamed User" {
		t.Errorf("expected updated name, got %q", u.Name)
	}
	if u.Phone != "+905559998877" {
		t.Errorf("expected updated phone, got %q", u.Phone)
	}
	if u.City != "İstanbul" || u.Town != "Kadıköy" {
		t.Errorf("expected city/town set, got %q/%q", u.City, u.Town)
	}
}

func TestStore_Update_InvalidFieldsFallBack(t *testing.T) {
	store, db := newTestStore(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateCompletedUser(ctx, "fallback@example.com", "secret1")

	// Invalid phone and blank name keep the stored values.
	if err := store.Update(ctx, user.ID, userstore.ProfileUpdate{Name: "  ", Phone: "nope"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	u, err := store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if u.Name != user.Name {
		t.Errorf("expected name to be kept, got %q", u.Name)
	}
	if u.Phone != user.Phone {
		t.Errorf("expected phone to be kept, got %q", u.Phone)
	}
}

func TestStore_Update_CityTown(t *testing.T) {
	store, db := newTestStore(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateCompletedUser(ctx, "citytown@example.com", "secret1")

	// An unknown pair for the stored country is rejected outright.
	err := store.Update(ctx, user.ID, userstore.ProfileUpdate{City: "Nowhere", Town: "Void"})
	if !errors.Is(err, userstore.ErrBadInput) {
		t.Errorf("expected ErrBadInput for unknown city/town, got %v", err)
	}

	// A lone city skips the joint validation and leaves location alone.
	if err := store.Update(ctx, user.ID, userstore.ProfileUpdate{City: "İstanbul"}); err != nil {
		t.Fatalf("Update with lone city failed: %v", err)
	}
	u, err := store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if u.City != "" {
		t.Errorf("expected city untouched, got %q", u.City)
	}

	if err := store.Update(ctx, primitive.NewObjectID(), userstore.ProfileUpdate{}); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SetInformation(t *testing.T) {
	store, db := newTestStore(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateCompletedUser(ctx, "info@example.com", "secret1")

	if err := store.SetInformation(ctx, user.ID, map[string]string{"favorite_color": "blue", "pet": "cat"}); err != nil {
		t.Fatalf("SetInformation failed: %v", err)
	}
	// A second merge overwrites existing keys and keeps the rest.
	if err := store.SetInformation(ctx, user.ID, map[string]string{"pet": "dog"}); err != nil {
		t.Fatalf("second SetInformation failed: %v", err)
	}

	u, err := store.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if u.Information["favorite_color"] != "blue" {
		t.Errorf("expected favorite_color kept, got %q", u.Information["favorite_color"])
	}
	if u.Information["pet"] != "dog" {
		t.Errorf("expected pet overwritten, got %q", u.Information["pet"])
	}

	if err := store.SetInformation(ctx, user.ID, nil); !errors.Is(err, userstore.ErrBadInput) {
		t.Errorf("expected ErrBadInput for empty answers, got %v", err)
	}
	if err := store.SetInformation(ctx, primitive.NewObjectID(), map[string]string{"a": "b"}); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_FindByInformation(t *testing.T) {
	store, db := newTestStore(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateCompletedUser(ctx, "seg-a@example.com", "secret1")
	b := fixtures.CreateCompletedUser(ctx, "seg-b@example.com", "secret1")
	if err := store.SetInformation(ctx, a.ID, map[string]string{"city_pref": "coastal"}); err != nil {
		t.Fatalf("SetInformation failed: %v", err)
	}
	if err := store.SetInformation(ctx, b.ID, map[string]string{"city_pref": "inland"}); err != nil {
		t.Fatalf("SetInformation failed: %v", err)
	}

	found, err := store.FindByInformation(ctx, "city_pref", "coastal")
	if err != nil {
		t.Fatalf("FindByInformation failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != a.ID {
		t.Errorf("expected only user a, got %d results", len(found))
	}

	if _, err := store.FindByInformation(ctx, "", "x"); !errors.Is(err, userstore.ErrBadInput) {
		t.Errorf("expected ErrBadInput for empty key, got %v", err)
	}
}
