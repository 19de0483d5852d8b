// internal/app/features/campaigns/handler.go
package campaigns

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	campaignstore "github.com/anketolabs/anketo/internal/app/store/campaigns"
	userstore "github.com/anketolabs/anketo/internal/app/store/users"
	"github.com/anketolabs/anketo/internal/app/system/apierr"
	"github.com/anketolabs/anketo/internal/app/system/auth"
	"github.com/anketolabs/anketo/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	campaigns *campaignstore.Store
	users     *userstore.Store
	log       *zap.Logger
}

func NewHandler(campaigns *campaignstore.Store, users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{campaigns: campaigns, users: users, log: logger}
}

// ServeList returns the active campaigns without their submissions.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.campaigns.ListActive(ctx)
	if err != nil {
		h.log.Error("failed to list campaigns", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not load campaigns")
		return
	}
	apierr.WriteJSON(w, http.StatusOK, list)
}

// HandleJoin adds the current user to a campaign. Only completed profiles
// may join, and only active campaigns accept members.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID, campaignID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.users.GetByID(ctx, userID)
	if errors.Is(err, userstore.ErrNotFound) {
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "account no longer exists")
		return
	}
	if err != nil {
		h.log.Error("failed to load user for join", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not join campaign")
		return
	}
	if !user.Completed {
		apierr.Write(w, http.StatusForbidden, apierr.CodeForbidden, "complete your profile before joining campaigns")
		return
	}

	campaign, err := h.campaigns.GetByID(ctx, campaignID)
	if errors.Is(err, campaignstore.ErrNotFound) {
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.log.Error("failed to load campaign for join", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not join campaign")
		return
	}
	if campaign.Status != "active" {
		apierr.Write(w, http.StatusConflict, apierr.CodeBadRequest, "campaign is closed")
		return
	}

	if err := h.users.JoinCampaign(ctx, userID, campaignID); err != nil {
		h.log.Error("failed to join campaign", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not join campaign")
		return
	}

	h.log.Info("user joined campaign",
		zap.String("user_id", userID.Hex()),
		zap.String("campaign_id", campaignID.Hex()))
	apierr.WriteJSON(w, http.StatusOK, map[string]bool{"joined": true})
}

type submissionRequest struct {
	Answers map[string]string `json:"answers"`
}

// HandleSubmission records the current user's answers for the campaign's
// current version. The user must have joined first.
func (h *Handler) HandleSubmission(w http.ResponseWriter, r *http.Request) {
	userID, campaignID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}

	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.users.GetByID(ctx, userID)
	if errors.Is(err, userstore.ErrNotFound) {
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "account no longer exists")
		return
	}
	if err != nil {
		h.log.Error("failed to load user for submission", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not save submission")
		return
	}
	joined := false
	for _, c := range user.Campaigns {
		if c == campaignID {
			joined = true
			break
		}
	}
	if !joined {
		apierr.Write(w, http.StatusForbidden, apierr.CodeForbidden, "join the campaign before submitting")
		return
	}

	err = h.campaigns.AddSubmission(ctx, campaignID, userID, req.Answers)
	switch {
	case err == nil:
	case errors.Is(err, campaignstore.ErrBadInput):
		apierr.Write(w, http.StatusUnprocessableEntity, apierr.CodeBadRequest, "answers must be a non-empty object")
		return
	case errors.Is(err, campaignstore.ErrNotFound):
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "campaign not found")
		return
	case errors.Is(err, campaignstore.ErrClosed):
		apierr.Write(w, http.StatusConflict, apierr.CodeBadRequest, "campaign is closed")
		return
	case errors.Is(err, campaignstore.ErrAlreadySubmitted):
		apierr.Write(w, http.StatusConflict, apierr.CodeBadRequest, "already submitted for this round")
		return
	default:
		h.log.Error("failed to save submission", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not save submission")
		return
	}

	apierr.WriteJSON(w, http.StatusCreated, map[string]bool{"submitted": true})
}

// requestIDs resolves the session user and the {id} route parameter.
func (h *Handler) requestIDs(w http.ResponseWriter, r *http.Request) (userID, campaignID primitive.ObjectID, ok bool) {
	su, found := auth.CurrentUser(r)
	if !found {
		apierr.Write(w, http.StatusUnauthorized, apierr.CodeUnauthorized, "sign in required")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		apierr.Write(w, http.StatusUnauthorized, apierr.CodeUnauthorized, "invalid session")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	campaignID, err = primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "invalid campaign id")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return userID, campaignID, true
}
