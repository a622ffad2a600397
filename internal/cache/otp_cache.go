package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unclebandit/smstrigger-backend/internal/model"
)

const otpKeyPrefix = "pos_otp"

// OTPCache holds the live challenge per customer. Storing a new challenge
// replaces the previous one, so at most one challenge is live at a time.
type OTPCache interface {
	StoreChallenge(ctx context.Context, challenge *model.OTPChallenge, ttl time.Duration) error
	// GetChallenge returns nil without error when no challenge is live.
	GetChallenge(ctx context.Context, customerID int) (*model.OTPChallenge, error)
	// UpdateChallenge rewrites the challenge keeping its remaining TTL.
	UpdateChallenge(ctx context.Context, challenge *model.OTPChallenge) error
	DeleteChallenge(ctx context.Context, customerID int) error
}

type redisOTPCache struct {
	client *redis.Client
}

func NewOTPCache(client *redis.Client) OTPCache {
	return &redisOTPCache{client: client}
}

func otpKey(customerID int) string {
	return fmt.Sprintf("%s:%d", otpKeyPrefix, customerID)
}

func (r *redisOTPCache) StoreChallenge(ctx context.Context, challenge *model.OTPChallenge, ttl time.Duration) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, otpKey(challenge.CustomerID), payload, ttl).Err()
}

func (r *redisOTPCache) GetChallenge(ctx context.Context, customerID int) (*model.OTPChallenge, error) {
	payload, err := r.client.Get(ctx, otpKey(customerID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var challenge model.OTPChallenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *redisOTPCache) UpdateChallenge(ctx context.Context, challenge *model.OTPChallenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, otpKey(challenge.CustomerID), payload, redis.KeepTTL).Err()
}

func (r *redisOTPCache) DeleteChallenge(ctx context.Context, customerID int) error {
	return r.client.Del(ctx, otpKey(customerID)).Err()
}
