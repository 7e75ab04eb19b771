package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/config"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/db"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/data/repos"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/domain"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/jobs/dispatcher"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/notify"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/observability"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/envutil"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/logger"
	"github.com/e-Learning-by-SSE/stu-website-service/internal/services"
)

func main() {
	// Config + Logger
	cfg, err := config.Load(envutil.String("CONFIG_FILE", ""))
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "stu-website-service",
		Environment: envutil.String("DEPLOY_ENV", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),
	})
	if otelShutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Warn("otel shutdown failed", "error", err)
			}
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(cfg.Postgres, log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	courseRepo := repos.NewCourseRepo(thePG, log)
	participantRepo := repos.NewParticipantRepo(thePG, log)
	groupRepo := repos.NewGroupRepo(thePG, log)
	membershipRepo := repos.NewMembershipRepo(thePG, log)
	assignmentRepo := repos.NewAssignmentRepo(thePG, log)
	assessmentRepo := repos.NewAssessmentRepo(thePG, log)
	registrationRepo := repos.NewRegistrationRepo(thePG, log)
	changeRepo := repos.NewChangeRecordRepo(thePG, log)
	outboxRepo := repos.NewOutboxRepo(thePG, log)

	// Notification sink
	sink, err := notify.NewRedisSink(cfg.Redis, log)
	if err != nil {
		log.Warn("Redis sink unavailable, notifications go to the log", "error", err)
		sink = notify.NewLogSink(log)
	}
	defer sink.Close()

	// Services
	log.Info("Setting up services...")
	membershipService := services.NewMembershipService(
		thePG, log,
		courseRepo, participantRepo, groupRepo, membershipRepo,
		changeRepo, outboxRepo,
		cfg.Groups.Capacity,
	)
	registrationService := services.NewRegistrationService(
		thePG, log,
		assignmentRepo, groupRepo, membershipRepo, registrationRepo,
		changeRepo, outboxRepo,
	)
	assessmentService := services.NewAssessmentService(
		thePG, log,
		assignmentRepo, assessmentRepo,
		changeRepo, outboxRepo,
	)
	changeFeedService := services.NewChangeFeedService(thePG, log, changeRepo)
	_ = registrationService
	_ = assessmentService
	_ = changeFeedService

	// Event dispatcher
	registry := dispatcher.NewRegistry()
	mustRegister := func(t domain.EventType, h dispatcher.Handler) {
		if err := registry.Register(t, h); err != nil {
			log.Error("handler registration failed", "event_type", t, "error", err)
			os.Exit(1)
		}
	}
	mustRegister(domain.EventUserLeftGroup, dispatcher.NewCloseEmptyGroupsHandler(membershipService, log))
	mustRegister(domain.EventUserJoinedGroup, dispatcher.NewGroupNotifyHandler(sink, log))
	mustRegister(domain.EventGroupClosed, dispatcher.NewGroupNotifyHandler(sink, log))
	mustRegister(domain.EventScoreChanged, dispatcher.NewScoreChangedHandler(sink, log))
	mustRegister(domain.EventRegistrationsRemoved, dispatcher.NewRegistrationsRemovedHandler(sink, log))

	disp := dispatcher.New(thePG, log, outboxRepo, registry, cfg.Worker)
	disp.Start(ctx)

	log.Info("Service started", "worker_concurrency", cfg.Worker.Concurrency)
	<-ctx.Done()
	log.Info("Shutting down...")
	disp.Wait()
	log.Info("Shutdown complete")
}
