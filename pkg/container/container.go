package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"ticketing-backend/internal/config"
	eventRepo "ticketing-backend/internal/domains/event/repository"
	eventService "ticketing-backend/internal/domains/event/service"
	orderRepo "ticketing-backend/internal/domains/order/repository"
	paymentGateway "ticketing-backend/internal/domains/payment/gateway"
	gatewayMock "ticketing-backend/internal/domains/payment/gateway/mock"
	"ticketing-backend/internal/domains/payment/gateway/paystack"
	paymentHandler "ticketing-backend/internal/domains/payment/handler"
	paymentRepo "ticketing-backend/internal/domains/payment/repository"
	paymentService "ticketing-backend/internal/domains/payment/service"
	ticketHandler "ticketing-backend/internal/domains/ticket/handler"
	ticketRepo "ticketing-backend/internal/domains/ticket/repository"
	ticketService "ticketing-backend/internal/domains/ticket/service"
	infraCache "ticketing-backend/internal/infrastructure/cache"
	"ticketing-backend/internal/infrastructure/database"
	"ticketing-backend/internal/shared/audit"
	"ticketing-backend/pkg/cache"
	"ticketing-backend/pkg/clock"
	"ticketing-backend/pkg/jwt"
	"ticketing-backend/pkg/logger"
	"ticketing-backend/pkg/qrtoken"
	"ticketing-backend/pkg/resilience"
)

// Container is the root of the dependency graph. Everything in it is
// a singleton wired once at startup; a wiring error aborts the boot.
type Container struct {
	Config *config.Config

	// Infrastructure
	DB          *database.PostgresDB
	Redis       *infraCache.RedisClient
	Cache       cache.Cache
	JWTManager  *jwt.Manager
	AsynqClient *asynq.Client

	// Domain ports
	Gateway paymentGateway.PaymentGateway
	Codec   *qrtoken.Codec
	Audit   audit.Emitter

	// Services
	EventService  eventService.EventService
	Engine        paymentService.TransactionEngine
	Webhook       paymentService.WebhookProcessor
	GateValidator ticketService.GateValidator
	TicketService ticketService.TicketService

	// Handlers
	PaymentHandler *paymentHandler.PaymentHandler
	TicketHandler  *ticketHandler.TicketHandler
}

// NewContainer builds the full graph: config, infrastructure,
// repositories, services, handlers — in that order.
func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c.Config = cfg

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}
	c.DB = database.NewPostgresDB(dbConfig)
	if err := c.DB.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	c.Cache = infraCache.NewRedisCache(c.Redis.Client)

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)

	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	c.Audit = audit.NewAsynqEmitter(c.AsynqClient)

	if cfg.Paystack.UseMock {
		logger.Warn("payment gateway running in mock mode", nil)
		c.Gateway = gatewayMock.NewMockPaystackGateway(cfg.Paystack.SecretKey)
	} else {
		gw, err := paystack.NewClient(paystack.NewConfig(cfg.Paystack))
		if err != nil {
			return nil, fmt.Errorf("failed to build paystack client: %w", err)
		}
		c.Gateway = gw
	}

	c.Codec = qrtoken.NewCodec(cfg.QR.Secret)

	pool := c.DB.Pool
	transactions := paymentRepo.NewPostgresTransactionRepository(pool)
	refunds := paymentRepo.NewPostgresRefundRepository(pool)
	outbox := paymentRepo.NewPostgresOutboxRepository(pool)
	orders := orderRepo.NewPostgresRepository(pool)
	events := eventRepo.NewPostgresRepository(pool)
	tickets := ticketRepo.NewPostgresTicketRepository(pool)
	txRunner := paymentRepo.NewPoolTxRunner(pool)

	c.EventService = eventService.NewEventService(events, c.Cache)

	backoff := resilience.PaymentRetryBackoff(
		time.Duration(cfg.Retry.BaseMS)*time.Millisecond,
		time.Duration(cfg.Retry.MaxMS)*time.Millisecond,
	)

	c.Engine = paymentService.NewTransactionEngine(
		txRunner, transactions, refunds, outbox, orders, events, tickets,
		c.EventService, c.Gateway, c.Codec, clock.System(), backoff,
		c.AsynqClient, c.Audit,
		paymentService.EngineConfig{
			OrganizerPercent: cfg.Splits.OrganizerPercent,
			MaxRetries:       cfg.Retry.MaxAttempts,
			GatewayTimeout:   time.Duration(cfg.Paystack.TimeoutMS) * time.Millisecond,
			ProcessingExpiry: time.Duration(cfg.Worker.ProcessingExpiryMin) * time.Minute,
		},
	)
	c.Webhook = paymentService.NewWebhookProcessor(c.Engine, c.Gateway, clock.System(), c.Audit)

	c.GateValidator = ticketService.NewGateValidator(tickets, events, c.Codec, clock.System(), c.Audit)
	c.TicketService = ticketService.NewTicketService(tickets)

	c.PaymentHandler = paymentHandler.NewPaymentHandler(c.Engine, c.Webhook)
	c.TicketHandler = ticketHandler.NewTicketHandler(c.GateValidator, c.TicketService)

	logger.Info("container initialized", map[string]interface{}{
		"environment": cfg.App.Environment,
		"gatewayMock": cfg.Paystack.UseMock,
	})
	return c, nil
}

// Cleanup releases infrastructure connections in reverse order.
func (c *Container) Cleanup() {
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			logger.Error("failed to close asynq client", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Error("failed to close redis", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
