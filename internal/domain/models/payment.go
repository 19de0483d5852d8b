// internal/domain/models/payment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment statuses.
const (
	PaymentWaiting = "waiting"
	PaymentSettled = "settled"
)

// Payment mirrors a user's waiting credit until it settles. One document is
// created per rewarded campaign submission; settlement moves the amount from
// waiting_credit to credit/overall_credit on the user.
type Payment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	CampaignID primitive.ObjectID `bson:"campaign_id" json:"campaign_id"`
	Amount     int64              `bson:"amount" json:"amount"`
	Status     string             `bson:"status" json:"status"` // waiting | settled

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	SettledAt *time.Time `bson:"settled_at,omitempty" json:"settled_at,omitempty"`
}
