package queue

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

const campaignQueueName = "campaign_sends"

// CampaignMessage is the payload exchanged between the API and the
// worker for one campaign send.
type CampaignMessage struct {
	CampaignID int `json:"campaign_id"`
}

// Publisher pushes campaign send jobs onto the broker.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewPublisher(amqpURL string) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(campaignQueueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{conn: conn, channel: ch}, nil
}

func (p *Publisher) PublishCampaign(campaignID int) error {
	body, err := json.Marshal(CampaignMessage{CampaignID: campaignID})
	if err != nil {
		return err
	}

	return p.channel.Publish(
		"",
		campaignQueueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// Consumer pulls campaign send jobs off the broker for the worker.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewConsumer(amqpURL string) (*Consumer, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(campaignQueueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	// One campaign at a time per worker.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	return &Consumer{conn: conn, channel: ch}, nil
}

// Consume delivers campaign messages to handler until the channel is
// closed. A handler error leaves the message unacked for redelivery.
func (c *Consumer) Consume(handler func(CampaignMessage) error) error {
	deliveries, err := c.channel.Consume(campaignQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for delivery := range deliveries {
		var msg CampaignMessage
		if err := json.Unmarshal(delivery.Body, &msg); err != nil {
			delivery.Nack(false, false)
			continue
		}
		if err := handler(msg); err != nil {
			delivery.Nack(false, true)
			continue
		}
		delivery.Ack(false)
	}
	return nil
}

func (c *Consumer) Close() error {
	if err := c.channel.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}
