// Package userstore owns the user collection: account creation,
// authentication, the one-time profile completion, repeatable profile
// updates, campaign/credit bookkeeping, and password recovery.
package userstore

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/anketolabs/anketo/internal/app/system/countries"
	"github.com/anketolabs/anketo/internal/app/system/inputval"
	"github.com/anketolabs/anketo/internal/app/system/normalize"
	"github.com/anketolabs/anketo/internal/app/system/passwords"
	"github.com/anketolabs/anketo/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Sentinel errors. Handlers map these onto the API's stable error codes.
var (
	// ErrBadInput is returned for malformed or missing fields that have no
	// more specific sentinel.
	ErrBadInput = errors.New("bad input")
	// ErrEmailInvalid is returned when an email fails format validation.
	ErrEmailInvalid = errors.New("invalid email address")
	// ErrPasswordTooShort is returned when a plaintext password is shorter
	// than the minimum length.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrDuplicateEmail is returned when creating a user with an email that
	// already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrPhoneInvalid is returned when a phone number fails mobile validation.
	ErrPhoneInvalid = errors.New("invalid mobile phone number")
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrPasswordMismatch is returned when a password fails verification.
	ErrPasswordMismatch = errors.New("password verification failed")
	// ErrAlreadyCompleted is returned when Complete is called on a user
	// whose profile is already completed.
	ErrAlreadyCompleted = errors.New("profile already completed")
)

type Store struct {
	c         *mongo.Collection
	countries countries.Resolver
}

func New(db *mongo.Database, resolver countries.Resolver) *Store {
	return &Store{c: db.Collection("users"), countries: resolver}
}

// NewUser carries the account creation input. InvitorCode is optional; a
// malformed code is discarded rather than rejected.
type NewUser struct {
	Email       string
	Password    string
	InvitorCode string
}

// Create inserts a new account with just email + password. The password is
// hashed here, at the persistence boundary; plaintext is neither stored nor
// logged. The account starts with agreement_approved=true, completed=false.
func (s *Store) Create(ctx context.Context, nu NewUser) (models.User, error) {
	email := normalize.Email(nu.Email)
	if email == "" {
		return models.User{}, ErrBadInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.User{}, ErrEmailInvalid
	}
	if len(nu.Password) < passwords.MinLength {
		return models.User{}, ErrPasswordTooShort
	}

	hash, err := passwords.Hash(nu.Password)
	if err != nil {
		return models.User{}, err
	}

	now := time.Now()
	u := models.User{
		ID:                primitive.NewObjectID(),
		Email:             email,
		PasswordHash:      hash,
		AgreementApproved: true,
		Completed:         false,
		Role:              "member",
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// A malformed invitor code means no invitor, not an error.
	if nu.InvitorCode != "" {
		if invitorID, err := primitive.ObjectIDFromHex(nu.InvitorCode); err == nil {
			u.Invitor = &invitorID
		}
	}

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// Authenticate looks up a user by normalized email and verifies the
// password. On success it lazily rewrites legacy gender values; that rewrite
// is best-effort and its failure is logged, never surfaced.
//
// The returned document is raw; callers expose it only through
// sanitize.User.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if !passwords.Verify(password, u.PasswordHash) {
		return nil, ErrPasswordMismatch
	}

	if canonical, rewritten := normalize.Gender(u.Gender); rewritten {
		_, err := s.c.UpdateOne(ctx,
			bson.M{"_id": u.ID},
			bson.M{"$set": bson.M{"gender": canonical, "updated_at": time.Now()}})
		if err != nil {
			zap.L().Warn("legacy gender rewrite failed",
				zap.String("user_id", u.ID.Hex()),
				zap.Error(err))
		} else {
			u.Gender = canonical
		}
	}

	return &u, nil
}

// GetByID loads a raw user document, secret fields included. Never write
// the result to a client without applying the sanitizer.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail loads a raw user document by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Profile is the one-time completion payload.
type Profile struct {
	Name      string
	Phone     string
	Gender    string
	BirthYear int
	Country   string
}

// Complete validates and applies the one-time profile completion. The
// validation order is fixed and the first failure wins:
// name, phone, gender, birth year, country, then existence, then the
// already-completed guard.
func (s *Store) Complete(ctx context.Context, id primitive.ObjectID, p Profile) error {
	name := normalize.Name(p.Name)
	if name == "" {
		return ErrBadInput
	}

	phone := normalize.Phone(p.Phone)
	if !inputval.IsMobile(phone) {
		return ErrPhoneInvalid
	}

	if !models.IsValidGender(p.Gender) {
		return ErrBadInput
	}

	if !inputval.IsBirthYear(p.BirthYear) {
		return ErrBadInput
	}

	country, ok := s.countries.Resolve(p.Country)
	if !ok {
		return ErrBadInput
	}

	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if u.Completed {
		return ErrAlreadyCompleted
	}

	// Filter on completed=false so two racing completions cannot both win.
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "completed": false},
		bson.M{"$set": bson.M{
			"name":       name,
			"name_ci":    text.Fold(name),
			"phone":      phone,
			"gender":     p.Gender,
			"birth_year": p.BirthYear,
			"country":    country.Alpha2,
			"completed":  true,
			"updated_at": time.Now(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAlreadyCompleted
	}
	return nil
}

// ProfileUpdate is the repeatable update payload. Empty fields are ignored.
// City and Town only take effect together; a lone city (or town) skips the
// joint validation and leaves location untouched.
type ProfileUpdate struct {
	Name  string
	Phone string
	City  string
	Town  string
}

// Update applies a repeatable profile update. Name and phone fall back to
// the stored values when absent or invalid; a supplied city/town pair must
// jointly validate against the stored country.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	set := bson.M{"updated_at": time.Now()}

	if name := normalize.Name(upd.Name); name != "" {
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if phone := normalize.Phone(upd.Phone); inputval.IsMobile(phone) {
		set["phone"] = phone
	}

	if upd.City != "" && upd.Town != "" {
		if !s.countries.ValidateCityTown(u.Country, upd.City, upd.Town) {
			return ErrBadInput
		}
		set["city"] = normalize.Name(upd.City)
		set["town"] = normalize.Name(upd.Town)
	}

	_, err = s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// SetInformation merges survey answers into the user's information map.
// Existing keys are overwritten, absent keys are kept.
func (s *Store) SetInformation(ctx context.Context, id primitive.ObjectID, answers map[string]string) error {
	if len(answers) == 0 {
		return ErrBadInput
	}

	set := bson.M{"updated_at": time.Now()}
	for k, v := range answers {
		if k == "" {
			return ErrBadInput
		}
		set["information."+k] = v
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByInformation returns users whose stored answer for the question key
// equals value. Used by admins to segment mail audiences.
func (s *Store) FindByInformation(ctx context.Context, key, value string) ([]models.User, error) {
	if key == "" {
		return nil, ErrBadInput
	}
	cur, err := s.c.Find(ctx, bson.M{"information." + key: value})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
