// Package sanitize builds the public view of a user document. Raw documents
// carry secrets (password hash, reset code, referral bookkeeping) and must
// never be written to a response directly; handlers go through User().
package sanitize

import (
	"github.com/anketolabs/anketo/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PublicUser is the client-safe projection of a user document.
type PublicUser struct {
	ID                primitive.ObjectID   `json:"id"`
	Email             string               `json:"email"`
	AgreementApproved bool                 `json:"agreement_approved"`
	Completed         bool                 `json:"completed"`
	Name              string               `json:"name,omitempty"`
	Phone             string               `json:"phone,omitempty"`
	Gender            string               `json:"gender,omitempty"`
	BirthYear         int                  `json:"birth_year,omitempty"`
	Country           string               `json:"country,omitempty"`
	City              string               `json:"city,omitempty"`
	Town              string               `json:"town,omitempty"`
	Information       map[string]string    `json:"information,omitempty"`
	Campaigns         []primitive.ObjectID `json:"campaigns,omitempty"`
	PaymentNumber     string               `json:"payment_number,omitempty"`
	Credit            int64                `json:"credit"`
	WaitingCredit     int64                `json:"waiting_credit"`
	OverallCredit     int64                `json:"overall_credit"`
}

// User strips secret and internal fields from a raw user document.
func User(u *models.User) PublicUser {
	return PublicUser{
		ID:                u.ID,
		Email:             u.Email,
		AgreementApproved: u.AgreementApproved,
		Completed:         u.Completed,
		Name:              u.Name,
		Phone:             u.Phone,
		Gender:            u.Gender,
		BirthYear:         u.BirthYear,
		Country:           u.Country,
		City:              u.City,
		Town:              u.Town,
		Information:       u.Information,
		Campaigns:         u.Campaigns,
		PaymentNumber:     u.PaymentNumber,
		Credit:            u.Credit,
		WaitingCredit:     u.WaitingCredit,
		OverallCredit:     u.OverallCredit,
	}
}
