package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/craftfolio/mailroom/internal/application"
	"github.com/craftfolio/mailroom/internal/domain/entity"
	"github.com/craftfolio/mailroom/pkg/response"
	"github.com/craftfolio/mailroom/pkg/validation"
)

type CampaignHandler struct {
	Service  *application.MailService
	Registry *application.CampaignRegistry
	Logger   *logrus.Logger
}

func NewCampaignHandler(svc *application.MailService, reg *application.CampaignRegistry, logger *logrus.Logger) *CampaignHandler {
	return &CampaignHandler{Service: svc, Registry: reg, Logger: logger}
}

type triggerRequest struct {
	UserID     string         `json:"user_id" binding:"required"`
	Email      string         `json:"email" binding:"required,email"`
	Trigger    string         `json:"trigger" binding:"required"`
	Properties map[string]any `json:"properties"`
}

// Trigger fires the drip campaigns registered for a lifecycle event.
// Deduplication, send caps and consent are enforced per campaign, so
// repeated calls for the same user are safe.
func (h *CampaignHandler) Trigger(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.JSON(c, response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err)))
		return
	}

	jobIDs, err := h.Service.TriggerCampaign(c.Request.Context(), req.UserID, req.Email, entity.CampaignTrigger(req.Trigger), req.Properties)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("trigger", req.Trigger).Warn("campaign trigger failed")
		}
		response.JSON(c, response.Error[any](c, http.StatusInternalServerError, "trigger failed", nil))
		return
	}
	response.JSON(c, response.Success[any](c, http.StatusAccepted, map[string]any{
		"trigger":  req.Trigger,
		"enqueued": len(jobIDs),
		"job_ids":  jobIDs,
	}, "campaigns evaluated", nil))
}

// Catalog lists the registered campaigns, mainly for operators checking
// what a trigger will fan out to.
func (h *CampaignHandler) Catalog(c *gin.Context) {
	response.JSON(c, response.Success(c, http.StatusOK, h.Registry.All(), "ok", nil))
}
