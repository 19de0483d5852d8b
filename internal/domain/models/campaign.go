// internal/domain/models/campaign.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Campaign is a survey/project users can join and submit answers to.
//
// Submissions are embedded sub-documents; each carries the campaign version
// it was answered against so reports can be filtered by version.
type Campaign struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Version     int                `bson:"version" json:"version"`
	Credit      int64              `bson:"credit" json:"credit"` // reward per submission
	Status      string             `bson:"status" json:"status"` // active | closed

	// Mail blast template used by the admin send endpoint.
	MailSubject string `bson:"mail_subject,omitempty" json:"mail_subject,omitempty"`
	MailBody    string `bson:"mail_body,omitempty" json:"mail_body,omitempty"`

	Submissions []Submission `bson:"submissions,omitempty" json:"submissions,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Submission is one user's versioned set of answers to a campaign.
type Submission struct {
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Version   int                `bson:"version" json:"version"`
	Answers   map[string]string  `bson:"answers" json:"answers"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
