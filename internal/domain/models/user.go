// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gender values stored on a user. Legacy locale values ("erkek", "kadın")
// still exist in old documents and are rewritten to canonical values the
// next time the user authenticates.
const (
	GenderMale         = "male"
	GenderFemale       = "female"
	GenderOther        = "other"
	GenderNotSpecified = "not_specified"
)

// BirthYearMin and BirthYearMax bound the plausible birth years accepted
// during profile completion (inclusive).
const (
	BirthYearMin = 1920
	BirthYearMax = 2020
)

// User is one registrant document.
//
// A user is created with just email + password (completed=false) and becomes
// a full member once the profile is completed exactly once. Location fields
// (city/town) are settable after completion and validate jointly against the
// stored country.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`

	AgreementApproved bool `bson:"agreement_approved" json:"agreement_approved"`
	Completed         bool `bson:"completed" json:"completed"`

	// Role gates the admin surface (mail blasts, reports). member | admin.
	Role string `bson:"role" json:"role"`

	// Profile fields, all empty until Complete.
	Name      string `bson:"name,omitempty" json:"name,omitempty"`
	NameCI    string `bson:"name_ci,omitempty" json:"name_ci,omitempty"` // lowercase, diacritics-stripped
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
	Gender    string `bson:"gender,omitempty" json:"gender,omitempty"`
	BirthYear int    `bson:"birth_year,omitempty" json:"birth_year,omitempty"`
	Country   string `bson:"country,omitempty" json:"country,omitempty"` // canonical alpha-2

	// Location, settable after completion.
	City string `bson:"city,omitempty" json:"city,omitempty"`
	Town string `bson:"town,omitempty" json:"town,omitempty"`

	// Survey answers keyed by question identifier.
	Information map[string]string `bson:"information,omitempty" json:"information,omitempty"`

	// Campaign linkage. PaidCampaigns is the idempotency guard against
	// paying the same campaign twice.
	Campaigns     []primitive.ObjectID `bson:"campaigns,omitempty" json:"campaigns,omitempty"`
	PaidCampaigns []primitive.ObjectID `bson:"paid_campaigns,omitempty" json:"paid_campaigns,omitempty"`

	// Finance.
	PaymentNumber string `bson:"payment_number,omitempty" json:"payment_number,omitempty"`
	Credit        int64  `bson:"credit" json:"credit"`
	WaitingCredit int64  `bson:"waiting_credit" json:"waiting_credit"`
	OverallCredit int64  `bson:"overall_credit" json:"overall_credit"`

	// Referral. InvitorCredited flips when the invitor's one-time bonus
	// has been paid, so it is never paid twice.
	Invitor         *primitive.ObjectID `bson:"invitor,omitempty" json:"-"`
	InvitorCredited bool                `bson:"invitor_credited,omitempty" json:"-"`

	// Password recovery. Both empty when no reset is pending.
	PasswordResetHash    string     `bson:"password_reset_hash,omitempty" json:"-"`
	PasswordResetToken   string     `bson:"password_reset_token,omitempty" json:"-"`
	PasswordResetExpires *time.Time `bson:"password_reset_expires,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidGender reports whether g is one of the canonical gender values.
func IsValidGender(g string) bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderNotSpecified:
		return true
	}
	return false
}
