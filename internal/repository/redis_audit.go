package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cresca-pay/vaultgate/internal/model"
)

// RedisAuditRepo keeps a capped recent-history list of audit entries. Used
// as a fallback when Postgres is not configured and as a fast recent view.
type RedisAuditRepo struct {
	client  *RedisClient
	listKey string
	listMax int
}

func NewRedisAuditRepo(client *RedisClient, listKey string, listMax int) *RedisAuditRepo {
	if listKey == "" {
		listKey = "audit_logs"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisAuditRepo{
		client:  client,
		listKey: listKey,
		listMax: listMax,
	}
}

func (r *RedisAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := r.client.Client.LPush(ctx, r.listKey, string(payload)).Err(); err != nil {
		return err
	}
	_ = r.client.Client.LTrim(ctx, r.listKey, 0, int64(r.listMax-1)).Err()
	return nil
}

func (r *RedisAuditRepo) List(ctx context.Context, relayerID string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	// over-fetch, then filter client-side
	fetch := int64(limit * 5)
	if fetch < 100 {
		fetch = 100
	}
	raw, err := r.client.Client.LRange(ctx, r.listKey, 0, fetch-1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*model.AuditLog, 0, limit)
	for _, item := range raw {
		var entry model.AuditLog
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		if relayerID != "" && entry.RelayerID != relayerID {
			continue
		}
		if from != nil && entry.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && entry.CreatedAt.After(*to) {
			continue
		}
		records = append(records, &entry)
		if len(records) >= limit {
			break
		}
	}
	return records, nil
}
