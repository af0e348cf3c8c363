package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/helpdesk-kit/triage-service/internal/api/http"
	"github.com/helpdesk-kit/triage-service/internal/api/http/handlers"
	"github.com/helpdesk-kit/triage-service/internal/auth"
	"github.com/helpdesk-kit/triage-service/internal/classifier"
	"github.com/helpdesk-kit/triage-service/internal/config"
	"github.com/helpdesk-kit/triage-service/internal/events"
	"github.com/helpdesk-kit/triage-service/internal/notify"
	"github.com/helpdesk-kit/triage-service/internal/observability"
	"github.com/helpdesk-kit/triage-service/internal/persistence"
	"github.com/helpdesk-kit/triage-service/internal/repository"
	"github.com/helpdesk-kit/triage-service/internal/retrieval"
	"github.com/helpdesk-kit/triage-service/internal/sentiment"
	"github.com/helpdesk-kit/triage-service/internal/service"
	"github.com/helpdesk-kit/triage-service/internal/triage"
	"github.com/helpdesk-kit/triage-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	repos := buildRepositories(pg, logger)

	dispatcher := events.NewInMemoryDispatcher(logger)
	notify.NewService(dispatcher, logger).RegisterHandlers()

	policy, err := config.LoadTriagePolicy(cfg.Triage.PolicyPath)
	if err != nil {
		logger.Fatal("failed to load triage policy", zap.Error(err))
	}

	deptClassifier := buildClassifier(cfg, redis, logger, metrics)

	evaluator := triage.NewEvaluator(policy.Escalation)
	lifecycle := triage.NewTicketLifecycleManager(triage.LifecycleDependencies{
		UnitOfWork:       repos.uow,
		ConversationRepo: repos.conversations,
		MessageRepo:      repos.messages,
		Dispatcher:       dispatcher,
		RepeatWindow:     cfg.Triage.RepeatWindow(),
		Logger:           logger,
		Metrics:          metrics,
	})
	router := triage.NewDepartmentRouter(triage.RouterDependencies{
		DepartmentRepo: repos.departments,
		RuleRepo:       repos.routingRules,
		Classifier:     deptClassifier,
		Threshold:      cfg.Classifier.ConfidenceThreshold,
		Logger:         logger,
		Metrics:        metrics,
	})
	resolver := triage.NewSLAResolver(repos.slaPolicies)
	assigner := triage.NewAgentAssigner(repos.users)

	triageService := triage.NewTriageService(triage.ServiceDependencies{
		Sentiment:        sentiment.NewLexiconAnalyzer(),
		Evaluator:        evaluator,
		Lifecycle:        lifecycle,
		Router:           router,
		Resolver:         resolver,
		Assigner:         assigner,
		ConversationRepo: repos.conversations,
		MessageRepo:      repos.messages,
		Logger:           logger,
		Metrics:          metrics,
	})

	monitor := triage.NewSLAMonitor(triage.MonitorDependencies{
		UnitOfWork: repos.uow,
		TicketRepo: repos.tickets,
		Notifier:   buildNotifier(cfg, logger),
		Dispatcher: dispatcher,
		BatchSize:  cfg.Triage.SweepBatchSize,
		Logger:     logger,
		Metrics:    metrics,
	})
	sweeper := worker.NewSweepWorker(worker.SweepWorkerDependencies{
		Monitor:  monitor,
		Redis:    redis.Client,
		Interval: cfg.Triage.SweepInterval(),
		LeaseTTL: cfg.Triage.SweepLease(),
		Logger:   logger,
	})
	if err := sweeper.Start(); err != nil {
		logger.Fatal("failed to start sla sweep", zap.Error(err))
	}

	conversationService := service.NewConversationService(service.ConversationDependencies{
		ConversationRepo: repos.conversations,
		MessageRepo:      repos.messages,
		Triage:           triageService,
		Logger:           logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		UnitOfWork:       repos.uow,
		TicketRepo:       repos.tickets,
		TicketEventRepo:  repos.ticketEvents,
		ConversationRepo: repos.conversations,
		UserRepo:         repos.users,
		DepartmentRepo:   repos.departments,
		Assigner:         assigner,
		Triage:           triageService,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	retrievalService := retrieval.NewService(
		retrieval.NewQdrantSearcher(cfg.Retrieval, logger),
		cfg.Retrieval.DefaultLimit,
		logger,
	)

	authService := auth.NewService(*cfg, repos.users)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.users, repos.departments)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Conversations:  handlers.NewConversationsHandler(conversationService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Search:         handlers.NewSearchHandler(retrievalService, sentiment.NewLexiconAnalyzer()),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	sweeper.Stop(stopCtx)
	_ = app.Shutdown()
}

// repositories groups the persistence interfaces the services consume,
// backed either by Postgres or by the in-memory stores.
type repositories struct {
	uow           repository.UnitOfWork
	users         repository.UserRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	tickets       repository.TicketRepository
	ticketEvents  repository.TicketEventRepository
	departments   repository.DepartmentRepository
	slaPolicies   repository.SLAPolicyRepository
	routingRules  repository.RoutingRuleRepository
}

// buildRepositories wires the Postgres repositories when a pool exists
// and falls back to the in-memory stores otherwise, so the service can
// run without a database for local development.
func buildRepositories(pg *persistence.Postgres, logger *zap.Logger) repositories {
	if pool := pg.PoolHandle(); pool != nil {
		return repositories{
			uow:           repository.NewPgUnitOfWork(pool),
			users:         repository.NewUserRepository(pool),
			conversations: repository.NewConversationRepository(pool),
			messages:      repository.NewMessageRepository(pool),
			tickets:       repository.NewTicketRepository(pool),
			ticketEvents:  repository.NewTicketEventRepository(pool),
			departments:   repository.NewDepartmentRepository(pool),
			slaPolicies:   repository.NewSLAPolicyRepository(pool),
			routingRules:  repository.NewRoutingRuleRepository(pool),
		}
	}

	logger.Warn("running on in-memory repositories; data is lost on restart")
	tickets := repository.NewMemoryTicketRepository()
	ticketEvents := repository.NewMemoryTicketEventRepository()
	conversations := repository.NewMemoryConversationRepository()
	return repositories{
		uow:           repository.NewMemoryUnitOfWork(tickets, ticketEvents, conversations),
		users:         repository.NewMemoryUserRepository(tickets),
		conversations: conversations,
		messages:      repository.NewMemoryMessageRepository(),
		tickets:       tickets,
		ticketEvents:  ticketEvents,
		departments:   repository.NewMemoryDepartmentRepository(),
		slaPolicies:   repository.NewMemorySLAPolicyRepository(),
		routingRules:  repository.NewMemoryRoutingRuleRepository(),
	}
}

// buildClassifier assembles the AI routing path: the Anthropic adapter
// wrapped in the Redis verdict cache when both are configured. A nil
// return disables the AI path and routing runs on keyword rules alone.
func buildClassifier(cfg *config.Config, redis *persistence.Redis, logger *zap.Logger, metrics *observability.Metrics) classifier.Classifier {
	if cfg.Classifier.APIKey == "" {
		logger.Warn("ANTHROPIC_API_KEY not provided; department routing uses keyword rules only")
		return nil
	}
	var c classifier.Classifier = classifier.NewAnthropicClassifier(cfg.Classifier, logger, metrics)
	if redis.Client != nil {
		c = classifier.NewCachedClassifier(c, redis.Client, cfg.Classifier.CacheTTL(), logger)
	}
	return c
}

// buildNotifier selects the breach alert channel: Slack when a bot
// token is configured, the structured log otherwise.
func buildNotifier(cfg *config.Config, logger *zap.Logger) triage.Notifier {
	if cfg.Slack.BotToken != "" {
		return notify.NewSlackNotifier(cfg.Slack, logger)
	}
	return notify.NewLogNotifier(logger)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
