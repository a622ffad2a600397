package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/smstrigger-backend/internal/cache"
	"github.com/unclebandit/smstrigger-backend/internal/config"
	"github.com/unclebandit/smstrigger-backend/internal/controller"
	"github.com/unclebandit/smstrigger-backend/internal/db"
	"github.com/unclebandit/smstrigger-backend/internal/gateway"
	"github.com/unclebandit/smstrigger-backend/internal/model"
	"github.com/unclebandit/smstrigger-backend/internal/queue"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
	"github.com/unclebandit/smstrigger-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, relying on OS environment variables")
	}

	cfg := config.LoadConfig()
	ctx := context.Background()

	database, err := db.Open(cfg.DatabaseDSN())
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close()

	redisClient, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	customerRepo := &repository.CustomerRepository{DB: database}
	ruleRepo := &repository.RuleRepository{DB: database}
	campaignRepo := &repository.CampaignRepository{DB: database}
	scheduledRepo := &repository.ScheduledSMSRepository{DB: database}
	invoiceRepo := &repository.InvoiceRepository{DB: database}
	settingsRepo := &repository.SettingsRepository{DB: database}

	var sender gateway.Sender = gateway.LogSender{}
	if cfg.GatewayURL != "" {
		sender = gateway.NewHTTPGateway(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.SenderID)
	}

	// Without a broker campaigns are processed in process.
	var sendQueue service.SendQueue
	publisher, err := queue.NewPublisher(cfg.AMQPURL)
	if err != nil {
		log.WithError(err).Warn("rabbitmq unavailable, campaigns will be processed in process")
	} else {
		defer publisher.Close()
		sendQueue = publisher
	}

	resolver := &service.ResolverService{
		CustomerRepo:  customerRepo,
		DefaultRegion: cfg.DefaultRegion,
	}
	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		Resolver:     resolver,
		Sender:       sender,
		Queue:        sendQueue,
	}
	ruleEngine := &service.RuleEngine{
		RuleRepo:      ruleRepo,
		CustomerRepo:  customerRepo,
		InvoiceRepo:   invoiceRepo,
		ScheduledRepo: scheduledRepo,
	}
	smsService := &service.SMSService{
		ScheduledRepo: scheduledRepo,
		CustomerRepo:  customerRepo,
		SettingsRepo:  settingsRepo,
		Sender:        sender,
	}
	otpService := &service.OTPService{
		SettingsRepo: settingsRepo,
		CustomerRepo: customerRepo,
		Cache:        cache.NewOTPCache(redisClient),
		Sender:       sender,
	}

	ruleController := &controller.RuleController{RuleRepo: ruleRepo, RuleEngine: ruleEngine}
	campaignController := &controller.CampaignController{CampaignService: campaignService}
	smsController := &controller.SMSController{SMSService: smsService, SettingsRepo: settingsRepo}
	otpController := &controller.OTPController{
		OTPService: otpService,
		Session:    model.NewVerificationSession(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Trigger rule routes
	r.Post("/rules", ruleController.CreateRule)
	r.Get("/rules", ruleController.ListRules)
	r.Get("/rules/{id}", ruleController.GetRule)
	r.Post("/rules/{id}/enable", ruleController.EnableRule)
	r.Post("/rules/{id}/disable", ruleController.DisableRule)
	r.Post("/rules/{id}/test", ruleController.TestRule)
	r.Post("/rules/validate-conditions", ruleController.ValidateConditions)

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaignDetails)
	r.Post("/campaigns/{id}/recipients", campaignController.LoadRecipients)
	r.Post("/campaigns/{id}/send", campaignController.SendCampaign)
	r.Post("/campaigns/{id}/retry", campaignController.RetryCampaign)

	// Single SMS routes
	r.Post("/sms/schedule", smsController.ScheduleSMS)
	r.Post("/sms/send", smsController.SendSMS)
	r.Get("/sms/stats", smsController.GetSMSStats)
	r.Get("/sms/settings", smsController.GetSettings)
	r.Put("/sms/settings", smsController.UpdateSettings)
	r.Post("/pos/invoice-sms", smsController.POSInvoiceSMS)

	// POS OTP routes
	r.Post("/otp/check", otpController.CheckOTPRequired)
	r.Post("/otp/send", otpController.SendOTP)
	r.Post("/otp/validate", otpController.ValidateOTP)

	addr := ":" + cfg.ServerPort
	log.WithField("addr", addr).Info("server running")
	log.Fatal(http.ListenAndServe(addr, r))
}
