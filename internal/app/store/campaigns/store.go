// Package campaignstore owns the campaign collection, including the
// embedded submission sub-documents.
package campaignstore

import (
	"context"
	"errors"
	"time"

	"github.com/anketolabs/anketo/internal/app/system/normalize"
	"github.com/anketolabs/anketo/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no campaign matches the lookup.
	ErrNotFound = errors.New("campaign not found")
	// ErrDuplicateName is returned when creating a campaign with a name
	// that already exists.
	ErrDuplicateName = errors.New("a campaign with this name already exists")
	// ErrBadInput is returned for malformed create/submission payloads.
	ErrBadInput = errors.New("bad input")
	// ErrClosed is returned when submitting to a campaign that is not active.
	ErrClosed = errors.New("campaign is closed")
	// ErrAlreadySubmitted is returned when a user already has a submission
	// for the campaign's current version.
	ErrAlreadySubmitted = errors.New("already submitted for this version")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("campaigns")}
}

// NewCampaign carries the admin create payload.
type NewCampaign struct {
	Name        string
	Description string
	Credit      int64
	MailSubject string
	MailBody    string
}

// Create inserts a new active campaign at version 1.
func (s *Store) Create(ctx context.Context, nc NewCampaign) (models.Campaign, error) {
	name := normalize.Name(nc.Name)
	if name == "" {
		return models.Campaign{}, ErrBadInput
	}
	if nc.Credit < 0 {
		return models.Campaign{}, ErrBadInput
	}

	now := time.Now()
	c := models.Campaign{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: nc.Description,
		Version:     1,
		Credit:      nc.Credit,
		Status:      "active",
		MailSubject: nc.MailSubject,
		MailBody:    nc.MailBody,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Campaign{}, ErrDuplicateName
		}
		return models.Campaign{}, err
	}
	return c, nil
}

// GetByID loads a campaign including its submissions.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	var c models.Campaign
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListActive returns active campaigns without their submissions, newest
// first.
func (s *Store) ListActive(ctx context.Context) ([]models.Campaign, error) {
	opts := options.Find().
		SetProjection(bson.M{"submissions": 0}).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cur, err := s.c.Find(ctx, bson.M{"status": "active"}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Campaign
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddSubmission appends one user's answers at the campaign's current
// version. A second submission by the same user for that version is
// rejected.
func (s *Store) AddSubmission(ctx context.Context, campaignID, userID primitive.ObjectID, answers map[string]string) error {
	if len(answers) == 0 {
		return ErrBadInput
	}

	c, err := s.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}
	if c.Status != "active" {
		return ErrClosed
	}
	for _, sub := range c.Submissions {
		if sub.UserID == userID && sub.Version == c.Version {
			return ErrAlreadySubmitted
		}
	}

	sub := models.Submission{
		UserID:    userID,
		Version:   c.Version,
		Answers:   answers,
		CreatedAt: time.Now(),
	}

	// Re-check the version in the filter: a bump between read and write
	// must not attach the submission to the wrong version.
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": campaignID, "version": c.Version, "status": "active"},
		bson.M{
			"$push": bson.M{"submissions": sub},
			"$set":  bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrClosed
	}
	return nil
}

// SubmissionsForVersion returns the submissions recorded against one
// version of a campaign.
func (s *Store) SubmissionsForVersion(ctx context.Context, campaignID primitive.ObjectID, version int) ([]models.Submission, error) {
	c, err := s.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	var out []models.Submission
	for _, sub := range c.Submissions {
		if sub.Version == version {
			out = append(out, sub)
		}
	}
	return out, nil
}

// BumpVersion starts a new submission round for a campaign.
func (s *Store) BumpVersion(ctx context.Context, campaignID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": campaignID},
		bson.M{
			"$inc": bson.M{"version": 1},
			"$set": bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close marks a campaign closed; closed campaigns reject submissions.
func (s *Store) Close(ctx context.Context, campaignID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": campaignID},
		bson.M{"$set": bson.M{"status": "closed", "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
