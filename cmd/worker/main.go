package main

import (
	"context"
	"errors"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/smstrigger-backend/internal/config"
	"github.com/unclebandit/smstrigger-backend/internal/db"
	appErrors "github.com/unclebandit/smstrigger-backend/internal/errors"
	"github.com/unclebandit/smstrigger-backend/internal/gateway"
	"github.com/unclebandit/smstrigger-backend/internal/queue"
	"github.com/unclebandit/smstrigger-backend/internal/repository"
	"github.com/unclebandit/smstrigger-backend/internal/service"
)

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
	campaignRepo := &repository.CampaignRepository{DB: database}

	var sender gateway.Sender = gateway.LogSender{}
	if cfg.GatewayURL != "" {
		sender = gateway.NewHTTPGateway(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.SenderID)
	}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		Resolver: &service.ResolverService{
			CustomerRepo:  customerRepo,
			DefaultRegion: cfg.DefaultRegion,
		},
		Sender: sender,
	}

	consumer, err := queue.NewConsumer(cfg.AMQPURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to rabbitmq")
	}
	defer consumer.Close()

	log.Info("worker running, waiting for campaign jobs")
	err = consumer.Consume(func(msg queue.CampaignMessage) error {
		log.WithField("campaign_id", msg.CampaignID).Info("processing campaign")
		err := campaignService.Process(context.Background(), msg.CampaignID)

		// A failed claim means another worker already took this
		// campaign; drop the message instead of requeueing it.
		var inProgress *appErrors.ErrSendInProgress
		if errors.As(err, &inProgress) {
			log.WithField("campaign_id", msg.CampaignID).Warn("campaign already claimed, dropping job")
			return nil
		}
		return err
	})
	if err != nil {
		log.WithError(err).Fatal("consumer stopped")
	}
}
