// internal/app/features/profile/handler.go
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	paymentstore "github.com/anketolabs/anketo/internal/app/store/payments"
	userstore "github.com/anketolabs/anketo/internal/app/store/users"
	"github.com/anketolabs/anketo/internal/app/system/apierr"
	"github.com/anketolabs/anketo/internal/app/system/auth"
	"github.com/anketolabs/anketo/internal/app/system/normalize"
	"github.com/anketolabs/anketo/internal/app/system/sanitize"
	"github.com/anketolabs/anketo/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	users    *userstore.Store
	payments *paymentstore.Store
	log      *zap.Logger
}

func NewHandler(users *userstore.Store, payments *paymentstore.Store, logger *zap.Logger) *Handler {
	return &Handler{users: users, payments: payments, log: logger}
}

// currentUserID resolves the session user's ObjectID or writes the error.
func currentUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Write(w, http.StatusUnauthorized, apierr.CodeUnauthorized, "sign in required")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		apierr.Write(w, http.StatusUnauthorized, apierr.CodeUnauthorized, "invalid session")
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeProfile returns the sanitized current user.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUserID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "account no longer exists")
		return
	}
	if err != nil {
		h.log.Error("failed to load profile", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not load profile")
		return
	}

	apierr.WriteJSON(w, http.StatusOK, sanitize.User(user))
}

type completeRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Gender    string `json:"gender"`
	BirthYear int    `json:"birth_year"`
	Country   string `json:"country"`
}

// HandleComplete applies the one-time profile completion. Legacy gender
// spellings are normalized before validation so old clients keep working.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "malformed request body")
		return
	}

	gender, _ := normalize.Gender(req.Gender)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.users.Complete(ctx, id, userstore.Profile{
		Name:      req.Name,
		Phone:     req.Phone,
		Gender:    gender,
		BirthYear: req.BirthYear,
		Country:   req.Country,
	})
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrPhoneInvalid):
		apierr.Write(w, http.StatusUnprocessableEntity, apierr.CodePhoneValidation, "invalid mobile phone number")
		return
	case errors.Is(err, userstore.ErrBadInput):
		apierr.Write(w, http.StatusUnprocessableEntity, apierr.CodeBadRequest, "invalid profile data")
		return
	case errors.Is(err, userstore.ErrAlreadyCompleted):
		apierr.Write(w, http.StatusConflict, apierr.CodeAlreadyAuthenticated, "profile already completed")
		return
	case errors.Is(err, userstore.ErrNotFound):
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "account no longer exists")
		return
	default:
		h.log.Error("profile completion failed", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not complete profile")
		return
	}

	h.serveFresh(w, r, id)
}

type updateRequest struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	City  string `json:"city,omitempty"`
	Town  string `json:"town,omitempty"`
}

// HandleUpdate applies a repeatable profile update.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.users.Update(ctx, id, userstore.ProfileUpdate{
		Name:  req.Name,
		Phone: req.Phone,
		City:  req.City,
		Town:  req.Town,
	})
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrBadInput):
		apierr.Write(w, http.StatusUnprocessableEntity, apierr.CodeBadRequest, "city and town do not match the profile country")
		return
	case errors.Is(err, userstore.ErrNotFound):
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "account no longer exists")
		return
	default:
		h.log.Error("profile update failed", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not update profile")
		return
	}

	h.serveFresh(w, r, id)
}

// HandleInformation merges survey answers into the information map. The
// body is a flat string-to-string object.
func (h *Handler) HandleInformation(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var answers map[string]string
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.users.SetInformation(ctx, id, answers)
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrBadInput):
		apierr.Write(w, http.StatusUnprocessableEntity, apierr.CodeBadRequest, "answers must be a non-empty object with non-empty keys")
		return
	case errors.Is(err, userstore.ErrNotFound):
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "account no longer exists")
		return
	default:
		h.log.Error("information update failed", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not save answers")
		return
	}

	h.serveFresh(w, r, id)
}

type paymentNumberRequest struct {
	PaymentNumber string `json:"payment_number"`
}

// HandlePaymentNumber stores the external payout identifier.
func (h *Handler) HandlePaymentNumber(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req paymentNumberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.users.SetPaymentNumber(ctx, id, req.PaymentNumber)
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrBadInput):
		apierr.Write(w, http.StatusUnprocessableEntity, apierr.CodeBadRequest, "payment number must not be blank")
		return
	case errors.Is(err, userstore.ErrNotFound):
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "account no longer exists")
		return
	default:
		h.log.Error("payment number update failed", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not save payment number")
		return
	}

	h.serveFresh(w, r, id)
}

// HandlePayments lists the current user's payment history, newest first.
func (h *Handler) HandlePayments(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUserID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.payments.ListForUser(ctx, id)
	if err != nil {
		h.log.Error("failed to list payments", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not load payments")
		return
	}

	apierr.WriteJSON(w, http.StatusOK, list)
}

// serveFresh reloads the document and writes the sanitized view, so every
// mutation responds with the state it produced.
func (h *Handler) serveFresh(w http.ResponseWriter, r *http.Request, id primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		h.log.Error("failed to reload profile", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not load profile")
		return
	}
	apierr.WriteJSON(w, http.StatusOK, sanitize.User(user))
}
