package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/craftfolio/mailroom/internal/container"
	handlers "github.com/craftfolio/mailroom/internal/interface/http"
	"github.com/craftfolio/mailroom/internal/interface/middleware"
	"github.com/craftfolio/mailroom/pkg/helpers"
)

type CampaignModule struct {
	Handler *handlers.CampaignHandler
	Tokens  *helpers.ServiceTokenManager
}

func NewCampaignModule(h *handlers.CampaignHandler, tokens *helpers.ServiceTokenManager) *CampaignModule {
	return &CampaignModule{Handler: h, Tokens: tokens}
}

func (m *CampaignModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.ServiceAuth(m.Tokens))
	auth.Use(
		middleware.RateLimit(container.GetRedis(), 600, time.Minute, middleware.KeyByService(), nil),
	)
	{
		auth.POST("/campaigns/trigger", m.Handler.Trigger)
		auth.GET("/campaigns", m.Handler.Catalog)
	}
}
