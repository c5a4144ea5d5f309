package main

import (
	"context"
	"encoding/base64"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"happymeter-backend/internal/config"
	"happymeter-backend/internal/db"
	"happymeter-backend/internal/handler"
	"happymeter-backend/internal/notify"
	"happymeter-backend/internal/ports"
	"happymeter-backend/internal/repository"
	"happymeter-backend/internal/scheduler"
	"happymeter-backend/internal/server"
	"happymeter-backend/internal/service"
	"happymeter-backend/internal/session"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg); err != nil {
		logger.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	// Firebase Auth (optional)
	var firebaseAuth *auth.Client
	if cfg.FirebaseProjectID != "" {
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, firebaseOptions(cfg)...)
		if err != nil {
			logger.Error("failed to init firebase app", "err", err)
			os.Exit(1)
		}
		client, err := app.Auth(ctx)
		if err != nil {
			logger.Error("failed to init firebase auth", "err", err)
			os.Exit(1)
		}
		firebaseAuth = client
	}

	// OTP delivery: Twilio when configured, log output otherwise.
	var notifier ports.Notifier
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFromNumber != "" {
		notifier = notify.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	} else {
		logger.Warn("twilio not configured, otp codes are logged only")
		notifier = notify.LogNotifier{Logger: logger}
	}

	// repositories
	userRepo := repository.UserRepository{DB: pg}
	programRepo := repository.ProgramRepository{DB: pg}
	customerRepo := repository.CustomerRepository{DB: pg}
	visitRepo := repository.VisitRepository{DB: pg}
	rewardRepo := repository.RewardRepository{DB: pg}
	redemptionRepo := repository.RedemptionRepository{DB: pg}
	tierRepo := repository.TierRepository{DB: pg}
	eventRepo := repository.EventRepository{DB: pg}
	ruleRepo := repository.RuleRepository{DB: pg}
	promotionRepo := repository.PromotionRepository{DB: pg}

	// services
	authSvc := service.AuthService{Config: cfg, Users: userRepo, Logger: logger, FirebaseAuth: firebaseAuth}
	tierSvc := service.TierService{Tiers: tierRepo, Events: eventRepo, Logger: logger}
	ledgerSvc := service.LedgerService{
		DB:        pg.Pool,
		Customers: customerRepo,
		Programs:  programRepo,
		Visits:    visitRepo,
		Tiers:     tierSvc,
		Cooldown:  cfg.VisitCooldown,
		Currency:  cfg.DefaultCurrency,
		Logger:    logger,
	}
	rewardSvc := service.RewardService{
		DB:          pg.Pool,
		Customers:   customerRepo,
		Rewards:     rewardRepo,
		Redemptions: redemptionRepo,
		Programs:    programRepo,
		Events:      eventRepo,
		Logger:      logger,
	}
	identitySvc := service.IdentityService{
		Customers:     customerRepo,
		Programs:      programRepo,
		Events:        eventRepo,
		Notifier:      notifier,
		OTPTTL:        cfg.OTPTTL,
		OTPBypassCode: cfg.OTPBypassCode,
		Logger:        logger,
	}

	sessions := session.NewCookieStore(cfg.SessionTTL, cfg.Env == "production")

	// handlers
	healthHandler := handler.HealthHandler{DB: pg}
	authHandler := handler.AuthHandler{Service: &authSvc, Logger: logger}
	cardHandler := handler.CardHandler{
		Identity:    identitySvc,
		Rewards:     rewardSvc,
		RewardRepo:  rewardRepo,
		Tiers:       tierRepo,
		Redemptions: redemptionRepo,
		Events:      eventRepo,
		Programs:    programRepo,
		Promotions:  promotionRepo,
		Sessions:    sessions,
		Logger:      logger,
	}
	scanHandler := handler.ScanHandler{
		Ledger:    ledgerSvc,
		Rewards:   rewardSvc,
		Customers: customerRepo,
		Programs:  programRepo,
		Logger:    logger,
	}
	programHandler := handler.ProgramHandler{Programs: programRepo, Users: userRepo, Logger: logger}
	staffHandler := handler.StaffHandler{Auth: authSvc, Users: userRepo, Programs: programRepo, Logger: logger}
	rewardHandler := handler.RewardAdminHandler{Rewards: rewardRepo, Programs: programRepo, Logger: logger}
	tierHandler := handler.TierAdminHandler{Tiers: tierRepo, Programs: programRepo, Logger: logger}
	ruleHandler := handler.RuleAdminHandler{Rules: ruleRepo, Rewards: rewardRepo, Programs: programRepo, Logger: logger}
	promotionHandler := handler.PromotionAdminHandler{Promotions: promotionRepo, Programs: programRepo, Logger: logger}
	exportHandler := handler.ExportHandler{Visits: visitRepo, Programs: programRepo, Currency: cfg.DefaultCurrency, Logger: logger}

	cron := scheduler.New(scheduler.OTPPurgeJob{Identity: identitySvc}, logger)
	cron.Start()
	defer cron.Stop()

	router := server.NewRouter(cfg, logger,
		healthHandler, authHandler, cardHandler, scanHandler,
		programHandler, staffHandler, rewardHandler, tierHandler,
		ruleHandler, promotionHandler, exportHandler)

	if err := server.Start(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func firebaseOptions(cfg config.Config) []option.ClientOption {
	if cfg.FirebaseCredFile == "" {
		return nil
	}

	cred := cfg.FirebaseCredFile
	// Allow inline JSON or base64-encoded JSON in env to avoid writing a file.
	if strings.HasPrefix(strings.TrimSpace(cred), "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cred))}
	}
	if decoded, err := base64.StdEncoding.DecodeString(cred); err == nil && strings.HasPrefix(strings.TrimSpace(string(decoded)), "{") {
		return []option.ClientOption{option.WithCredentialsJSON(decoded)}
	}

	return []option.ClientOption{option.WithCredentialsFile(cred)}
}
