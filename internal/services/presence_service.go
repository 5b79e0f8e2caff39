package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"alo17-service/internal/database"

	"github.com/redis/go-redis/v9"
)

// PresenceService tracks online users and backs the rate limit middleware.
type PresenceService struct {
	client *database.RedisClient
}

func NewPresenceService(client *database.RedisClient) *PresenceService {
	return &PresenceService{
		client: client,
	}
}

// =============================================================================
// User Status Management
// =============================================================================

func (s *PresenceService) SetUserOnline(ctx context.Context, userID string) error {
	pipe := s.client.GetClient().Pipeline()

	// Add to online users set
	pipe.SAdd(ctx, "online_users", userID)

	// Set user status hash
	pipe.HSet(ctx, fmt.Sprintf("user:%s:status", userID), map[string]interface{}{
		"status":     "online",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})

	// Set expiration for status
	pipe.Expire(ctx, fmt.Sprintf("user:%s:status", userID), 5*time.Minute)

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("Failed to set user online", "userID", userID, "error", err)
		return err
	}

	slog.Debug("User set to online", "userID", userID)
	return nil
}

func (s *PresenceService) SetUserOffline(ctx context.Context, userID string) error {
	pipe := s.client.GetClient().Pipeline()

	// Remove from online users set
	pipe.SRem(ctx, "online_users", userID)

	// Update user status
	pipe.HSet(ctx, fmt.Sprintf("user:%s:status", userID), map[string]interface{}{
		"status":     "offline",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})

	// Keep offline status around longer for "last seen" display
	pipe.Expire(ctx, fmt.Sprintf("user:%s:status", userID), 24*time.Hour)

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("Failed to set user offline", "userID", userID, "error", err)
		return err
	}

	slog.Debug("User set to offline", "userID", userID)
	return nil
}

func (s *PresenceService) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	return s.client.GetClient().SIsMember(ctx, "online_users", userID).Result()
}

func (s *PresenceService) GetOnlineUsers(ctx context.Context) ([]string, error) {
	return s.client.GetClient().SMembers(ctx, "online_users").Result()
}

// =============================================================================
// Rate Limiting
// =============================================================================

// CheckRateLimit implements a sliding window counter over a sorted set.
func (s *PresenceService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).Unix()

	pipe := s.client.GetClient().Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))

	// Count current entries
	pipe.ZCard(ctx, key)

	// Add current request
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.Unix()), Member: now.UnixNano()})

	// Set expiration
	pipe.Expire(ctx, key, window)

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, err
	}

	count := results[1].(*redis.IntCmd).Val()
	return count < int64(limit), nil
}
