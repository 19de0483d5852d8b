package sanitize

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/anketolabs/anketo/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserStripsSecrets(t *testing.T) {
	invitor := primitive.NewObjectID()
	expires := time.Now().Add(time.Hour)
	raw := &models.User{
		ID:                   primitive.NewObjectID(),
		Email:                "a@b.com",
		PasswordHash:         "$2a$10$abcdefghijklmnopqrstuv",
		Completed:            true,
		Name:                 "A",
		Invitor:              &invitor,
		PasswordResetHash:    "$2a$10$resetresetresetresetre",
		PasswordResetToken:   "tok-123",
		PasswordResetExpires: &expires,
		Credit:               5,
	}

	pub := User(raw)

	b, err := json.Marshal(pub)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	body := string(b)

	for _, secret := range []string{"password", "reset", "invitor", "tok-123"} {
		if strings.Contains(strings.ToLower(body), secret) {
			t.Errorf("sanitized user leaks %q: %s", secret, body)
		}
	}

	if pub.Email != "a@b.com" || pub.Name != "A" || pub.Credit != 5 {
		t.Errorf("sanitized user lost public fields: %+v", pub)
	}
}
