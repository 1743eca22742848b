package triggers

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"warden/internal/suspension"
)

// SeenSet records artifact fingerprints per key and reports first sight.
type SeenSet interface {
	Add(ctx context.Context, key, member string) (bool, error)
}

// RedisSeenSet backs the fingerprint set with a redis set per user.
type RedisSeenSet struct {
	client redis.Cmdable
	prefix string
}

func NewRedisSeenSet(client redis.Cmdable, prefix string) *RedisSeenSet {
	return &RedisSeenSet{client: client, prefix: prefix}
}

func (s *RedisSeenSet) Add(ctx context.Context, key, member string) (bool, error) {
	added, err := s.client.SAdd(ctx, s.prefix+":"+key, member).Result()
	if err != nil {
		return false, fmt.Errorf("record artifact fingerprint: %w", err)
	}
	return added > 0, nil
}

// MemorySeenSet is the in-process fallback.
type MemorySeenSet struct {
	mu   sync.Mutex
	seen map[string]map[string]struct{}
}

func NewMemorySeenSet() *MemorySeenSet {
	return &MemorySeenSet{seen: make(map[string]map[string]struct{})}
}

func (s *MemorySeenSet) Add(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.seen[key]
	if !ok {
		members = make(map[string]struct{})
		s.seen[key] = members
	}
	if _, exists := members[member]; exists {
		return false, nil
	}
	members[member] = struct{}{}
	return true, nil
}

// DuplicateDetector flags the same externally-verifiable artifact reference
// resubmitted by the same user. References are fingerprinted before storage
// so raw URLs never land in the detector state.
type DuplicateDetector struct {
	seen SeenSet
}

func NewDuplicateDetector(seen SeenSet) *DuplicateDetector {
	return &DuplicateDetector{seen: seen}
}

func (d *DuplicateDetector) Name() string { return "duplicate-artifact" }

func (d *DuplicateDetector) Detect(ctx context.Context, event SubmissionEvent) (Finding, bool, error) {
	if event.ArtifactRef == "" {
		return Finding{}, false, nil
	}

	fingerprint := FingerprintArtifact(event.ArtifactRef)
	fresh, err := d.seen.Add(ctx, event.UserID.String(), fingerprint)
	if err != nil {
		return Finding{}, false, err
	}
	if fresh {
		return Finding{}, false, nil
	}
	return Finding{
		Category: suspension.ReasonDuplicateArtifact,
		Details:  fmt.Sprintf("artifact %s resubmitted", fingerprint[:12]),
	}, true, nil
}

// FingerprintArtifact hashes an artifact reference to a stable hex digest.
func FingerprintArtifact(ref string) string {
	sum := blake2b.Sum256([]byte(ref))
	return hex.EncodeToString(sum[:])
}
