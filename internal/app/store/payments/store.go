// Package paymentstore owns the payment collection. Each document mirrors
// one waiting credit on a user until the settlement worker finalizes it.
package paymentstore

import (
	"context"
	"errors"
	"time"

	"github.com/anketolabs/anketo/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no payment matches the lookup.
	ErrNotFound = errors.New("payment not found")
	// ErrBadInput is returned for non-positive amounts.
	ErrBadInput = errors.New("bad input")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("payments")}
}

// CreateWaiting records a pending payment for a rewarded submission.
func (s *Store) CreateWaiting(ctx context.Context, userID, campaignID primitive.ObjectID, amount int64) (models.Payment, error) {
	if amount <= 0 {
		return models.Payment{}, ErrBadInput
	}

	p := models.Payment{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		CampaignID: campaignID,
		Amount:     amount,
		Status:     models.PaymentWaiting,
		CreatedAt:  time.Now(),
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Payment{}, err
	}
	return p, nil
}

// ListWaitingOlderThan returns waiting payments created before the cutoff,
// oldest first. The settlement worker feeds on this.
func (s *Store) ListWaitingOlderThan(ctx context.Context, cutoff time.Time, limit int64) ([]models.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.c.Find(ctx, bson.M{
		"status":     models.PaymentWaiting,
		"created_at": bson.M{"$lt": cutoff},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Payment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkSettled flips a waiting payment to settled. Only waiting documents
// match, so a double settle is reported as ErrNotFound.
func (s *Store) MarkSettled(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.PaymentWaiting},
		bson.M{"$set": bson.M{"status": models.PaymentSettled, "settled_at": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser returns a user's payments, newest first.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Payment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
