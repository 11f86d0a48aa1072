package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/craftfolio/mailroom/config"
	"github.com/craftfolio/mailroom/internal/application"
	"github.com/craftfolio/mailroom/internal/domain/entity"
	"github.com/craftfolio/mailroom/pkg/response"
	"github.com/craftfolio/mailroom/pkg/validation"
)

type MailHandler struct {
	Service *application.MailService
	Indexer *application.DeliveryIndexer
	Logger  *logrus.Logger
	Cfg     *config.Config
}

func NewMailHandler(svc *application.MailService, idx *application.DeliveryIndexer, logger *logrus.Logger, cfg *config.Config) *MailHandler {
	return &MailHandler{Service: svc, Indexer: idx, Logger: logger, Cfg: cfg}
}

type sendTransactionalRequest struct {
	To          string         `json:"to" binding:"required,email"`
	TemplateID  string         `json:"template_id" binding:"required"`
	Variables   map[string]any `json:"variables"`
	Priority    string         `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	ScheduledAt string         `json:"scheduled_at" binding:"omitempty"` // RFC3339
}

type sendMarketingRequest struct {
	To          string         `json:"to" binding:"required,email"`
	TemplateID  string         `json:"template_id" binding:"required"`
	Variables   map[string]any `json:"variables"`
	Segment     string         `json:"segment"`
	ScheduledAt string         `json:"scheduled_at" binding:"omitempty"` // RFC3339
}

func parseScheduledAt(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SendTransactional enqueues an operational email. The request returns as
// soon as the job is queued; delivery and retries happen on the
// dispatcher's schedule.
func (h *MailHandler) SendTransactional(c *gin.Context) {
	var req sendTransactionalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.JSON(c, response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err)))
		return
	}
	scheduledAt, err := parseScheduledAt(req.ScheduledAt)
	if err != nil {
		response.JSON(c, response.Error[any](c, http.StatusBadRequest, "scheduled_at must be RFC3339", nil))
		return
	}

	if h.Cfg != nil && !h.Cfg.MailSendEnabled {
		response.JSON(c, response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": false, "disabled": true}, "email sending disabled", nil))
		return
	}

	jobID, err := h.Service.SendTransactional(c.Request.Context(), req.To, req.TemplateID, req.Variables, application.SendOptions{
		Priority:    entity.EmailPriority(req.Priority),
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		if errors.Is(err, application.ErrRecipientSuppressed) {
			response.JSON(c, response.Error[any](c, http.StatusForbidden, "recipient is unsubscribed", nil))
			return
		}
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("transactional enqueue failed")
		}
		response.JSON(c, response.Error[any](c, http.StatusInternalServerError, "failed to enqueue", nil))
		return
	}
	response.JSON(c, response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": true, "job_id": jobID}, "email enqueued", nil))
}

// SendMarketing enqueues a marketing email. Missing consent is reported as
// a skip, not an error, so callers never fail a user flow over it.
func (h *MailHandler) SendMarketing(c *gin.Context) {
	var req sendMarketingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.JSON(c, response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err)))
		return
	}
	scheduledAt, err := parseScheduledAt(req.ScheduledAt)
	if err != nil {
		response.JSON(c, response.Error[any](c, http.StatusBadRequest, "scheduled_at must be RFC3339", nil))
		return
	}

	if h.Cfg != nil && !h.Cfg.MailSendEnabled {
		response.JSON(c, response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": false, "disabled": true}, "email sending disabled", nil))
		return
	}

	jobID, err := h.Service.SendMarketing(c.Request.Context(), req.To, req.TemplateID, req.Variables, application.MarketingOptions{
		ScheduledAt: scheduledAt,
		Segment:     req.Segment,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("marketing enqueue failed")
		}
		response.JSON(c, response.Error[any](c, http.StatusInternalServerError, "failed to enqueue", nil))
		return
	}
	if jobID == "" {
		response.JSON(c, response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": false, "reason": "no consent"}, "send skipped", nil))
		return
	}
	response.JSON(c, response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": true, "job_id": jobID}, "email enqueued", nil))
}

type unsubscribeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Scope string `json:"scope" binding:"required,oneof=all marketing"`
}

func (h *MailHandler) Unsubscribe(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.JSON(c, response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err)))
		return
	}
	if err := h.Service.Unsubscribe(c.Request.Context(), req.Email, entity.UnsubscribeScope(req.Scope)); err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("email", req.Email).Warn("unsubscribe failed")
		}
		response.JSON(c, response.Error[any](c, http.StatusInternalServerError, "unsubscribe failed", nil))
		return
	}
	response.JSON(c, response.Success[any](c, http.StatusOK, map[string]any{"email": req.Email, "scope": req.Scope}, "unsubscribed", nil))
}

type trackRequest struct {
	JobID    string         `json:"job_id" binding:"required"`
	Event    string         `json:"event" binding:"required,oneof=opened clicked bounced complained"`
	Metadata map[string]any `json:"metadata"`
}

// Track records a provider engagement ping. Unknown job ids are accepted:
// tracking is best-effort telemetry, not a critical-path operation.
func (h *MailHandler) Track(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.JSON(c, response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err)))
		return
	}
	if err := h.Service.TrackEngagement(c.Request.Context(), req.JobID, entity.EngagementEvent(req.Event), req.Metadata); err != nil {
		response.JSON(c, response.Error[any](c, http.StatusBadRequest, "invalid event", nil))
		return
	}
	response.JSON(c, response.Success[any](c, http.StatusOK, map[string]any{"job_id": req.JobID, "event": req.Event}, "recorded", nil))
}

// Metrics aggregates the delivery log between start and end (RFC3339 or
// YYYY-MM-DD), optionally filtered by template.
func (h *MailHandler) Metrics(c *gin.Context) {
	start, err := parseDateParam(c.Query("start"))
	if err != nil {
		response.JSON(c, response.Error[any](c, http.StatusBadRequest, "start must be RFC3339 or YYYY-MM-DD", nil))
		return
	}
	end, err := parseDateParam(c.Query("end"))
	if err != nil {
		response.JSON(c, response.Error[any](c, http.StatusBadRequest, "end must be RFC3339 or YYYY-MM-DD", nil))
		return
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}

	m, err := h.Service.Metrics(c.Request.Context(), start, end, c.Query("template"))
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("metrics query failed")
		}
		response.JSON(c, response.Error[any](c, http.StatusInternalServerError, "metrics unavailable", nil))
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, m, "ok", nil))
}

func parseDateParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// Search queries the Elasticsearch delivery index (admin email history).
func (h *MailHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.JSON(c, response.Error[any](c, http.StatusBadRequest, "q is required", nil))
		return
	}
	size := 10
	if v := c.Query("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			size = n
		}
	}
	hits, err := h.Indexer.Search(c.Request.Context(), q, size)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("delivery search failed")
		}
		response.JSON(c, response.Error[any](c, http.StatusInternalServerError, "search unavailable", nil))
		return
	}
	response.JSON(c, response.Success(c, http.StatusOK, hits, "ok", nil))
}
