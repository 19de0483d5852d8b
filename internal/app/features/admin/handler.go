// internal/app/features/admin/handler.go
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	campaignstore "github.com/anketolabs/anketo/internal/app/store/campaigns"
	paymentstore "github.com/anketolabs/anketo/internal/app/store/payments"
	userstore "github.com/anketolabs/anketo/internal/app/store/users"
	"github.com/anketolabs/anketo/internal/app/system/apierr"
	"github.com/anketolabs/anketo/internal/app/system/inputval"
	"github.com/anketolabs/anketo/internal/app/system/mailer"
	"github.com/anketolabs/anketo/internal/app/system/sanitize"
	"github.com/anketolabs/anketo/internal/app/system/timeouts"
	"github.com/anketolabs/anketo/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// reportConcurrency caps how many user lookups one report runs in parallel.
const reportConcurrency = 30

type Handler struct {
	campaigns *campaignstore.Store
	users     *userstore.Store
	payments  *paymentstore.Store
	mail      mailer.Sender
	validate  *inputval.Validator
	siteName  string
	log       *zap.Logger
}

func NewHandler(campaigns *campaignstore.Store, users *userstore.Store, payments *paymentstore.Store, mail mailer.Sender, siteName string, logger *zap.Logger) *Handler {
	return &Handler{
		campaigns: campaigns,
		users:     users,
		payments:  payments,
		mail:      mail,
		validate:  inputval.New(),
		siteName:  siteName,
		log:       logger,
	}
}

type createCampaignRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Credit      int64  `json:"credit" validate:"gte=0"`
	MailSubject string `json:"mail_subject"`
	MailBody    string `json:"mail_body"`
}

// HandleCreateCampaign creates a new active campaign.
func (h *Handler) HandleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			apierr.WriteValidation(w, verrs)
			return
		}
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "invalid campaign data")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	campaign, err := h.campaigns.Create(ctx, campaignstore.NewCampaign{
		Name:        req.Name,
		Description: req.Description,
		Credit:      req.Credit,
		MailSubject: req.MailSubject,
		MailBody:    mailer.SanitizeHTML(req.MailBody),
	})
	switch {
	case err == nil:
	case errors.Is(err, campaignstore.ErrBadInput):
		apierr.Write(w, http.StatusUnprocessableEntity, apierr.CodeBadRequest, "invalid campaign data")
		return
	case errors.Is(err, campaignstore.ErrDuplicateName):
		apierr.Write(w, http.StatusConflict, apierr.CodeBadRequest, "a campaign with this name already exists")
		return
	default:
		h.log.Error("failed to create campaign", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not create campaign")
		return
	}

	h.log.Info("campaign created",
		zap.String("campaign_id", campaign.ID.Hex()),
		zap.String("name", campaign.Name))
	apierr.WriteJSON(w, http.StatusCreated, campaign)
}

type mailBlastRequest struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

type mailBlastResponse struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

// HandleMailBlast sends the campaign announcement to every joined user.
// The body, whether stored on the campaign or overridden in the request,
// goes through the HTML sanitizer before it reaches the template.
func (h *Handler) HandleMailBlast(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	var req mailBlastRequest
	if r.Body != nil {
		// An empty body means "use the stored template".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	campaign, err := h.campaigns.GetByID(ctx, campaignID)
	if errors.Is(err, campaignstore.ErrNotFound) {
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.log.Error("failed to load campaign for mail blast", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not send mail")
		return
	}

	body := campaign.MailBody
	if req.Body != "" {
		body = req.Body
	}
	subject := campaign.MailSubject
	if req.Subject != "" {
		subject = req.Subject
	}

	recipients, err := h.users.ListByCampaign(ctx, campaignID)
	if err != nil {
		h.log.Error("failed to list campaign members", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not send mail")
		return
	}

	email := mailer.BuildCampaignEmail(mailer.CampaignEmailData{
		SiteName:     h.siteName,
		CampaignName: campaign.Name,
		Body:         template.HTML(mailer.SanitizeHTML(body)),
		Credit:       campaign.Credit,
	})
	if subject != "" {
		email.Subject = subject
	}

	resp := mailBlastResponse{Recipients: len(recipients)}
	for _, u := range recipients {
		msg := email
		msg.To = u.Email
		if err := h.mail.Send(ctx, msg); err != nil {
			h.log.Warn("mail blast delivery failed",
				zap.String("campaign_id", campaignID.Hex()),
				zap.String("to", u.Email),
				zap.Error(err))
			resp.Failed++
			continue
		}
		resp.Sent++
	}

	h.log.Info("mail blast finished",
		zap.String("campaign_id", campaignID.Hex()),
		zap.Int("recipients", resp.Recipients),
		zap.Int("sent", resp.Sent),
		zap.Int("failed", resp.Failed))
	apierr.WriteJSON(w, http.StatusOK, resp)
}

// reportRow joins one submission with its sanitized author.
type reportRow struct {
	User      sanitize.PublicUser `json:"user"`
	Answers   map[string]string   `json:"answers"`
	CreatedAt time.Time           `json:"created_at"`
}

type reportResponse struct {
	CampaignID primitive.ObjectID `json:"campaign_id"`
	Version    int                `json:"version"`
	Rows       []reportRow        `json:"rows"`
}

// HandleReport returns the submissions for one campaign version, each
// joined with its sanitized user. User lookups fan out through an errgroup
// capped at reportConcurrency; any single failure aborts the whole report.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	campaign, err := h.campaigns.GetByID(ctx, campaignID)
	if errors.Is(err, campaignstore.ErrNotFound) {
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.log.Error("failed to load campaign for report", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not build report")
		return
	}

	version := campaign.Version
	if raw := r.URL.Query().Get("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "invalid version")
			return
		}
		version = v
	}

	var subs []models.Submission
	for _, sub := range campaign.Submissions {
		if sub.Version == version {
			subs = append(subs, sub)
		}
	}

	rows := make([]reportRow, len(subs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reportConcurrency)
	for i, sub := range subs {
		g.Go(func() error {
			user, err := h.users.GetByID(gctx, sub.UserID)
			if err != nil {
				return err
			}
			mu.Lock()
			rows[i] = reportRow{
				User:      sanitize.User(user),
				Answers:   sub.Answers,
				CreatedAt: sub.CreatedAt,
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "a submitting user no longer exists")
			return
		}
		h.log.Error("report fan-out failed", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not build report")
		return
	}

	apierr.WriteJSON(w, http.StatusOK, reportResponse{
		CampaignID: campaignID,
		Version:    version,
		Rows:       rows,
	})
}

type rewardResponse struct {
	Rewarded    int `json:"rewarded"`
	AlreadyPaid int `json:"already_paid"`
}

// HandleReward creates waiting credits for every user who submitted to the
// campaign's current version. The paid_campaigns guard makes the endpoint
// safe to call repeatedly; an already rewarded user is counted, not failed.
func (h *Handler) HandleReward(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	campaign, err := h.campaigns.GetByID(ctx, campaignID)
	if errors.Is(err, campaignstore.ErrNotFound) {
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.log.Error("failed to load campaign for reward", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not reward users")
		return
	}
	if campaign.Credit <= 0 {
		apierr.Write(w, http.StatusUnprocessableEntity, apierr.CodeBadRequest, "campaign has no credit to pay")
		return
	}

	subs, err := h.campaigns.SubmissionsForVersion(ctx, campaignID, campaign.Version)
	if err != nil {
		h.log.Error("failed to load submissions for reward", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not reward users")
		return
	}

	var resp rewardResponse
	for _, sub := range subs {
		err := h.users.AddWaitingCredit(ctx, sub.UserID, campaignID, campaign.Credit)
		if errors.Is(err, userstore.ErrAlreadyPaid) {
			resp.AlreadyPaid++
			continue
		}
		if errors.Is(err, userstore.ErrNotFound) {
			h.log.Warn("submitting user no longer exists",
				zap.String("user_id", sub.UserID.Hex()))
			continue
		}
		if err != nil {
			h.log.Error("failed to add waiting credit",
				zap.String("user_id", sub.UserID.Hex()),
				zap.Error(err))
			apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not reward users")
			return
		}

		if _, err := h.payments.CreateWaiting(ctx, sub.UserID, campaignID, campaign.Credit); err != nil {
			// Without the Payment mirror the settlement worker would never
			// see this credit, so take the credit and the paid guard back;
			// a retry of the endpoint then rewards the user cleanly.
			if rbErr := h.users.RevokeWaitingCredit(ctx, sub.UserID, campaignID, campaign.Credit); rbErr != nil {
				h.log.Error("failed to revoke waiting credit after payment write failure",
					zap.String("user_id", sub.UserID.Hex()),
					zap.Error(rbErr))
			}
			h.log.Error("failed to record waiting payment",
				zap.String("user_id", sub.UserID.Hex()),
				zap.Error(err))
			apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not reward users")
			return
		}
		resp.Rewarded++
	}

	h.log.Info("campaign rewarded",
		zap.String("campaign_id", campaignID.Hex()),
		zap.Int("rewarded", resp.Rewarded),
		zap.Int("already_paid", resp.AlreadyPaid))
	apierr.WriteJSON(w, http.StatusOK, resp)
}

type segmentResponse struct {
	Count int                   `json:"count"`
	Users []sanitize.PublicUser `json:"users"`
}

// HandleSegment lists users whose stored survey answer for a question key
// equals the given value. Admins use it to scope mail audiences before a
// blast. GET /admin/users/segment?key=...&value=...
func (h *Handler) HandleSegment(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	value := r.URL.Query().Get("value")
	if key == "" {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "key is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, err := h.users.FindByInformation(ctx, key, value)
	if err != nil {
		h.log.Error("failed to segment users", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not segment users")
		return
	}

	resp := segmentResponse{Count: len(users), Users: make([]sanitize.PublicUser, len(users))}
	for i := range users {
		resp.Users[i] = sanitize.User(&users[i])
	}
	apierr.WriteJSON(w, http.StatusOK, resp)
}

// HandleBumpVersion opens a new submission round.
func (h *Handler) HandleBumpVersion(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.campaigns.BumpVersion(ctx, campaignID)
	if errors.Is(err, campaignstore.ErrNotFound) {
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.log.Error("failed to bump campaign version", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not bump version")
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]bool{"bumped": true})
}

// HandleClose closes a campaign to further submissions.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.campaigns.Close(ctx, campaignID)
	if errors.Is(err, campaignstore.ErrNotFound) {
		apierr.Write(w, http.StatusNotFound, apierr.CodeNotFound, "campaign not found")
		return
	}
	if err != nil {
		h.log.Error("failed to close campaign", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.CodeDatabaseError, "could not close campaign")
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]bool{"closed": true})
}

func (h *Handler) campaignID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, http.StatusBadRequest, apierr.CodeBadRequest, "invalid campaign id")
		return primitive.NilObjectID, false
	}
	return id, true
}
