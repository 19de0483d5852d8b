package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/anketolabs/anketo/internal/app/system/passwords"
	"github.com/anketolabs/anketo/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a registered but incomplete user with the given email
// and password. The password is bcrypt hashed the same way the user store
// hashes it.
func (f *Fixtures) CreateUser(ctx context.Context, email, password string) models.User {
	f.t.Helper()

	hash, err := passwords.Hash(password)
	if err != nil {
		f.t.Fatalf("failed to hash fixture password: %v", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:                primitive.NewObjectID(),
		Email:             email,
		PasswordHash:      hash,
		AgreementApproved: true,
		Completed:         false,
		Role:              "member",
		Information:       map[string]string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err = f.db.Collection("users").InsertOne(ctx, user)
	if err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateCompletedUser creates a user with a finished profile so it can join
// campaigns and submit answers.
func (f *Fixtures) CreateCompletedUser(ctx context.Context, email, password string) models.User {
	f.t.Helper()

	user := f.CreateUser(ctx, email, password)
	user.Completed = true
	user.Name = "Test User"
	user.NameCI = text.Fold(user.Name)
	user.Phone = "+905551112233"
	user.Gender = models.GenderMale
	user.BirthYear = 1990
	user.Country = "TR"

	_, err := f.db.Collection("users").ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		f.t.Fatalf("failed to complete test user: %v", err)
	}

	return user
}

// CreateAdmin creates a user with the admin role.
func (f *Fixtures) CreateAdmin(ctx context.Context, email, password string) models.User {
	f.t.Helper()

	user := f.CreateUser(ctx, email, password)
	user.Role = "admin"

	_, err := f.db.Collection("users").ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		f.t.Fatalf("failed to promote test user: %v", err)
	}

	return user
}

// CreateCampaign creates an active campaign with the given name and credit.
func (f *Fixtures) CreateCampaign(ctx context.Context, name string, credit int64) models.Campaign {
	f.t.Helper()

	now := time.Now().UTC()
	campaign := models.Campaign{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "Test campaign",
		Version:     1,
		Credit:      credit,
		Status:      "active",
		Submissions: []models.Submission{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := f.db.Collection("campaigns").InsertOne(ctx, campaign)
	if err != nil {
		f.t.Fatalf("failed to create test campaign: %v", err)
	}

	return campaign
}
