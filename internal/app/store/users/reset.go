// internal/app/store/users/reset.go
package userstore

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/anketolabs/anketo/internal/app/system/passwords"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	// ResetCodeLength is the number of digits in a reset code.
	ResetCodeLength = 6
	// DefaultResetExpiry is how long a reset code stays valid.
	DefaultResetExpiry = 30 * time.Minute
)

var (
	// ErrResetInvalid is returned when no reset is pending or the code does
	// not match.
	ErrResetInvalid = errors.New("invalid password reset code")
	// ErrResetExpired is returned when the pending reset has expired.
	ErrResetExpired = errors.New("password reset code expired")
)

// ResetRequest carries the generated secrets back to the caller for
// mailing. Only the bcrypt hash of the code is persisted.
type ResetRequest struct {
	Code      string
	Token     string
	ExpiresAt time.Time
}

// StartPasswordReset generates a reset code for the account with this
// email and stores its hash with an expiry. A new request replaces any
// pending one.
func (s *Store) StartPasswordReset(ctx context.Context, email string, expiry time.Duration) (*ResetRequest, error) {
	if expiry <= 0 {
		expiry = DefaultResetExpiry
	}

	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	code, err := generateCode(ResetCodeLength)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), passwords.BcryptCost)
	if err != nil {
		return nil, err
	}

	req := &ResetRequest{
		Code:      code,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(expiry),
	}

	_, err = s.c.UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{"$set": bson.M{
			"password_reset_hash":    string(hash),
			"password_reset_token":   req.Token,
			"password_reset_expires": req.ExpiresAt,
			"updated_at":             time.Now(),
		}})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// CompletePasswordReset verifies the code and replaces the password. The
// pending reset is cleared on success, and also after expiry is detected so
// a stale code cannot be retried forever.
func (s *Store) CompletePasswordReset(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < passwords.MinLength {
		return ErrPasswordTooShort
	}

	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if u.PasswordResetHash == "" || u.PasswordResetExpires == nil {
		return ErrResetInvalid
	}
	if time.Now().After(*u.PasswordResetExpires) {
		_ = s.clearReset(ctx, u.ID)
		return ErrResetExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordResetHash), []byte(code)) != nil {
		return ErrResetInvalid
	}

	hash, err := passwords.Hash(newPassword)
	if err != nil {
		return err
	}

	_, err = s.c.UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{
			"$set": bson.M{"password_hash": hash, "updated_at": time.Now()},
			"$unset": bson.M{
				"password_reset_hash":    "",
				"password_reset_token":   "",
				"password_reset_expires": "",
			},
		})
	return err
}

func (s *Store) clearReset(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$unset": bson.M{
			"password_reset_hash":    "",
			"password_reset_token":   "",
			"password_reset_expires": "",
		}})
	return err
}

// generateCode returns n uniformly random decimal digits.
func generateCode(n int) (string, error) {
	digits := make([]byte, 0, n)
	buf := make([]byte, 1)
	for len(digits) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		// 250 is the largest multiple of 10 a byte holds; values above it
		// would skew the modulo toward low digits.
		if buf[0] >= 250 {
			continue
		}
		digits = append(digits, '0'+buf[0]%10)
	}
	return string(digits), nil
}
