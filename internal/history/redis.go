package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis keeps one list of JSON-encoded outcomes per document, newest at the head.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedis(rdb redis.UniversalClient, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(documentID string) string {
	return r.prefix + "outcomes:" + documentID
}

func (r *Redis) Record(ctx context.Context, o Outcome) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	if err := r.rdb.LPush(ctx, r.key(o.DocumentID), raw).Err(); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context, documentID string, limit int) ([]Outcome, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}
	raws, err := r.rdb.LRange(ctx, r.key(documentID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}

	out := make([]Outcome, 0, len(raws))
	for _, raw := range raws {
		var o Outcome
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			return nil, fmt.Errorf("decode outcome: %w", err)
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
