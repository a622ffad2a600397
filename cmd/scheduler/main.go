package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/smstrigger-backend/internal/config"
	"github.com/unclebandit/smstrigger-backend/internal/db"
	"github.com/unclebandit/smstrigger-backend/internal/gateway"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
	"github.com/unclebandit/smstrigger-backend/internal/service"
)

const flushBatchSize = 200

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, relying on OS environment variables")
	}

	cfg := config.LoadConfig()

	database, err := db.Open(cfg.DatabaseDSN())
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close()

	customerRepo := &repository.CustomerRepository{DB: database}
	ruleRepo := &repository.RuleRepository{DB: database}
	scheduledRepo := &repository.ScheduledSMSRepository{DB: database}
	invoiceRepo := &repository.InvoiceRepository{DB: database}
	settingsRepo := &repository.SettingsRepository{DB: database}

	var sender gateway.Sender = gateway.LogSender{}
	if cfg.GatewayURL != "" {
		sender = gateway.NewHTTPGateway(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.SenderID)
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

	c := cron.New()

	// Daily trigger pass: evaluate active rules and queue matched
	// messages as draft scheduled SMS.
	if _, err := c.AddFunc("0 9 * * *", func() {
		now := time.Now()
		if err := ruleEngine.ProcessTriggers(now); err != nil {
			log.WithError(err).Error("trigger pass failed")
			return
		}
		log.WithField("run_at", now.Format(time.RFC3339)).Info("trigger pass completed")
	}); err != nil {
		log.WithError(err).Fatal("failed to schedule trigger pass")
	}

	// Delivery pass: flush due scheduled messages every minute.
	if _, err := c.AddFunc("* * * * *", func() {
		sent, err := smsService.FlushDue(context.Background(), time.Now(), flushBatchSize)
		if err != nil {
			log.WithError(err).Error("flush pass failed")
			return
		}
		if sent > 0 {
			log.WithField("sent", sent).Info("flushed scheduled sms")
		}
	}); err != nil {
		log.WithError(err).Fatal("failed to schedule flush pass")
	}

	c.Start()
	log.Info("scheduler running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("scheduler stopping")
	<-c.Stop().Done()
}
