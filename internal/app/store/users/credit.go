// internal/app/store/users/credit.go
package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anketolabs/anketo/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// InvitorBonus is the fixed credit paid to a referrer when their referee's
// first waiting credit settles.
const InvitorBonus = 2

var (
	// ErrAlreadyPaid is returned when a campaign reward would be paid to
	// the same user twice.
	ErrAlreadyPaid = errors.New("campaign already paid for this user")
)

// JoinCampaign records campaign membership. Joining twice is a no-op.
// Callers gate this on a completed profile.
func (s *Store) JoinCampaign(ctx context.Context, userID, campaignID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$addToSet": bson.M{"campaigns": campaignID},
			"$set":      bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddWaitingCredit adds a pending reward for a campaign. The paid_campaigns
// array is the idempotency guard: a campaign that is already listed there
// yields ErrAlreadyPaid and no balance change. The caller mirrors the
// amount with a Payment document.
func (s *Store) AddWaitingCredit(ctx context.Context, userID, campaignID primitive.ObjectID, amount int64) error {
	if amount <= 0 {
		return ErrBadInput
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "paid_campaigns": bson.M{"$ne": campaignID}},
		bson.M{
			"$addToSet": bson.M{"paid_campaigns": campaignID},
			"$inc":      bson.M{"waiting_credit": amount},
			"$set":      bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either the user is gone or the campaign was already paid.
		if err := s.c.FindOne(ctx, bson.M{"_id": userID}).Err(); err == mongo.ErrNoDocuments {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return ErrAlreadyPaid
	}
	return nil
}

// RevokeWaitingCredit undoes AddWaitingCredit for a campaign whose Payment
// mirror was never written: it removes the paid_campaigns guard and returns
// the amount, so a retry of the reward can go through AddWaitingCredit
// again. The filter requires the guard and a sufficient waiting balance;
// anything else means there is nothing to revoke.
func (s *Store) RevokeWaitingCredit(ctx context.Context, userID, campaignID primitive.ObjectID, amount int64) error {
	if amount <= 0 {
		return ErrBadInput
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "paid_campaigns": campaignID, "waiting_credit": bson.M{"$gte": amount}},
		bson.M{
			"$pull": bson.M{"paid_campaigns": campaignID},
			"$inc":  bson.M{"waiting_credit": -amount},
			"$set":  bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SettleCredit moves a settled amount from waiting_credit into credit and
// overall_credit. On the user's first settlement their invitor, if any,
// receives the fixed bonus exactly once.
func (s *Store) SettleCredit(ctx context.Context, userID primitive.ObjectID, amount int64) error {
	if amount <= 0 {
		return ErrBadInput
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "waiting_credit": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{
				"waiting_credit": -amount,
				"credit":         amount,
				"overall_credit": amount,
			},
			"$set": bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if err := s.c.FindOne(ctx, bson.M{"_id": userID}).Err(); err == mongo.ErrNoDocuments {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return ErrBadInput
	}

	return s.creditInvitor(ctx, userID)
}

// creditInvitor pays the one-time referral bonus. The invitor_credited flag
// in the filter keeps the bonus single-shot even under concurrent
// settlements.
func (s *Store) creditInvitor(ctx context.Context, userID primitive.ObjectID) error {
	res := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": userID, "invitor": bson.M{"$ne": nil}, "invitor_credited": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"invitor_credited": true, "updated_at": time.Now()}})

	var u struct {
		Invitor *primitive.ObjectID `bson:"invitor"`
	}
	err := res.Decode(&u)
	if err == mongo.ErrNoDocuments {
		// No invitor, or the bonus was already paid.
		return nil
	}
	if err != nil {
		return err
	}
	if u.Invitor == nil {
		return nil
	}

	_, err = s.c.UpdateOne(ctx,
		bson.M{"_id": *u.Invitor},
		bson.M{
			"$inc": bson.M{"credit": int64(InvitorBonus), "overall_credit": int64(InvitorBonus)},
			"$set": bson.M{"updated_at": time.Now()},
		})
	return err
}

// ListByCampaign returns every user who joined the campaign. Used for
// admin mail blasts.
func (s *Store) ListByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]models.User, error) {
	cur, err := s.c.Find(ctx, bson.M{"campaigns": campaignID})
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

// SetPaymentNumber stores the external payout identifier.
func (s *Store) SetPaymentNumber(ctx context.Context, userID primitive.ObjectID, paymentNumber string) error {
	paymentNumber = strings.TrimSpace(paymentNumber)
	if paymentNumber == "" {
		return ErrBadInput
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"payment_number": paymentNumber, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
