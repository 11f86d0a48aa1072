package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/craftfolio/mailroom/internal/container"
	handlers "github.com/craftfolio/mailroom/internal/interface/http"
	"github.com/craftfolio/mailroom/internal/interface/middleware"
	"github.com/craftfolio/mailroom/pkg/helpers"
)

type MailModule struct {
	Handler *handlers.MailHandler
	Tokens  *helpers.ServiceTokenManager
}

func NewMailModule(h *handlers.MailHandler, tokens *helpers.ServiceTokenManager) *MailModule {
	return &MailModule{Handler: h, Tokens: tokens}
}

func (m *MailModule) Register(rg *gin.RouterGroup) {
	// Service-to-service endpoints, rate-limited per caller.
	auth := rg.Group("/")
	auth.Use(middleware.ServiceAuth(m.Tokens))
	auth.Use(
		middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByService(), nil),
	)
	{
		auth.POST("/email/transactional", m.Handler.SendTransactional)
		auth.POST("/email/marketing", m.Handler.SendMarketing)
		auth.POST("/email/unsubscribe", m.Handler.Unsubscribe)
		auth.GET("/email/metrics", m.Handler.Metrics)
		auth.GET("/email/search", m.Handler.Search)
	}

	// Engagement pings come from the provider's webhook relay, which
	// authenticates the same way but gets a wider rate budget per IP.
	track := rg.Group("/")
	track.Use(middleware.ServiceAuth(m.Tokens))
	track.Use(
		middleware.RateLimit(container.GetRedis(), 1200, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP()),
	)
	{
		track.POST("/email/events", m.Handler.Track)
	}
}
