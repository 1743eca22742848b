package triggers

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"warden/internal/suspension"
)

// Rejection thresholds: three or more rejections among the user's last five
// submissions fires the detector.
const (
	rejectionLookback  = 5
	rejectionThreshold = 3
)

// OutcomeLog keeps the most recent submission outcomes per key, newest
// first, trimmed to the lookback depth.
type OutcomeLog interface {
	AppendAndList(ctx context.Context, key, outcome string, depth int) ([]string, error)
}

// RedisOutcomeLog stores outcomes in a capped redis list.
type RedisOutcomeLog struct {
	client redis.Cmdable
	prefix string
}

func NewRedisOutcomeLog(client redis.Cmdable, prefix string) *RedisOutcomeLog {
	return &RedisOutcomeLog{client: client, prefix: prefix}
}

func (l *RedisOutcomeLog) AppendAndList(ctx context.Context, key, outcome string, depth int) ([]string, error) {
	redisKey := l.prefix + ":" + key

	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, redisKey, outcome)
	pipe.LTrim(ctx, redisKey, 0, int64(depth-1))
	list := pipe.LRange(ctx, redisKey, 0, int64(depth-1))

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("append outcome: %w", err)
	}
	return list.Val(), nil
}

// MemoryOutcomeLog is the in-process fallback.
type MemoryOutcomeLog struct {
	mu       sync.Mutex
	outcomes map[string][]string
}

func NewMemoryOutcomeLog() *MemoryOutcomeLog {
	return &MemoryOutcomeLog{outcomes: make(map[string][]string)}
}

func (l *MemoryOutcomeLog) AppendAndList(_ context.Context, key, outcome string, depth int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := append([]string{outcome}, l.outcomes[key]...)
	if len(list) > depth {
		list = list[:depth]
	}
	l.outcomes[key] = list
	return append([]string(nil), list...), nil
}

// RejectionDetector flags users whose recent submissions are mostly
// rejected.
type RejectionDetector struct {
	log OutcomeLog
}

func NewRejectionDetector(log OutcomeLog) *RejectionDetector {
	return &RejectionDetector{log: log}
}

func (d *RejectionDetector) Name() string { return "repeated-rejection" }

func (d *RejectionDetector) Detect(ctx context.Context, event SubmissionEvent) (Finding, bool, error) {
	recent, err := d.log.AppendAndList(ctx, event.UserID.String(), string(event.Status), rejectionLookback)
	if err != nil {
		return Finding{}, false, err
	}

	rejected := 0
	for _, outcome := range recent {
		if outcome == string(StatusRejected) {
			rejected++
		}
	}
	if rejected < rejectionThreshold {
		return Finding{}, false, nil
	}
	return Finding{
		Category: suspension.ReasonRepeatedRejection,
		Details:  fmt.Sprintf("%d rejections among last %d submissions", rejected, len(recent)),
	}, true, nil
}
