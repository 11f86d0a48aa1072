package router

import (
	"github.com/craftfolio/mailroom/internal/container"
	handlers "github.com/craftfolio/mailroom/internal/interface/http"
	"github.com/craftfolio/mailroom/internal/router/modules"
)

// InitModules wires the handler modules into the registry. Called once at
// startup after the container singletons are set.
func InitModules(r *Registry) {
	mailHandler := handlers.NewMailHandler(
		container.GetMailService(),
		container.GetIndexer(),
		container.GetLogger(),
		container.GetConfig(),
	)
	campaignHandler := handlers.NewCampaignHandler(
		container.GetMailService(),
		container.GetRegistry(),
		container.GetLogger(),
	)

	tokens := container.GetServiceTokens()
	r.Add(modules.NewMailModule(mailHandler, tokens))
	r.Add(modules.NewCampaignModule(campaignHandler, tokens))
	r.Add(modules.NewDebugModule())
}
