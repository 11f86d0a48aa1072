package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/craftfolio/mailroom/config"
	"github.com/craftfolio/mailroom/internal/application"
	"github.com/craftfolio/mailroom/pkg/helpers"
	"github.com/craftfolio/mailroom/pkg/mailer"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	esClient    *elasticsearch.Client

	tokens *helpers.ServiceTokenManager

	mailgunClient *mailer.Mailgun
	rabbitPub     *helpers.RabbitPublisher

	mailService *application.MailService
	indexer     *application.DeliveryIndexer
	registry    *application.CampaignRegistry
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config  { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger  { return logger }
func SetPGPool(p *pgxpool.Pool)  { pgPool = p }
func GetPGPool() *pgxpool.Pool   { return pgPool }
func SetRedis(r *redis.Client)   { redisClient = r }
func GetRedis() *redis.Client    { return redisClient }
func SetES(c *elasticsearch.Client) { esClient = c }
func GetES() *elasticsearch.Client  { return esClient }

func SetServiceTokens(m *helpers.ServiceTokenManager) { tokens = m }
func GetServiceTokens() *helpers.ServiceTokenManager {
	if tokens != nil {
		return tokens
	}
	return helpers.DefaultServiceTokens()
}

func SetMailgun(m *mailer.Mailgun)            { mailgunClient = m }
func GetMailgun() *mailer.Mailgun             { return mailgunClient }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }

func SetMailService(s *application.MailService)   { mailService = s }
func GetMailService() *application.MailService    { return mailService }
func SetIndexer(x *application.DeliveryIndexer)   { indexer = x }
func GetIndexer() *application.DeliveryIndexer    { return indexer }
func SetRegistry(r *application.CampaignRegistry) { registry = r }
func GetRegistry() *application.CampaignRegistry  { return registry }
