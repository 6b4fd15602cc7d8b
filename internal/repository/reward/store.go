package reward

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	domreward "github.com/kailas-cloud/convscore/internal/domain/reward"
	"github.com/kailas-cloud/convscore/internal/metrics"
)

// store is the consumer interface for reward submissions (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	RPush(ctx context.Context, key string, values ...string) error
}

// auditLine is one entry of the append-only reward log.
type auditLine struct {
	GUID        string             `json:"guid"`
	Identity    string             `json:"identity"`
	WindowIndex int                `json:"window_index"`
	Rewards     map[string]float64 `json:"rewards"`
	Total       float64            `json:"total"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// Store is the reward sink on top of DB (HSET per conversation + RPUSH audit log).
type Store struct {
	store    store
	prefix   string
	identity string
	now      func() time.Time
	logger   *zap.Logger
}

// New creates a reward sink. identity is recorded on every audit line.
func New(s store, prefix, identity string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{store: s, prefix: prefix, identity: identity, now: time.Now, logger: logger}
}

func (s *Store) rewardsKey(guid string) string { return s.prefix + "rewards:" + guid }
func (s *Store) logKey() string                { return s.prefix + "rewards:log" }

// Submit persists one window's reward vector.
func (s *Store) Submit(ctx context.Context, guid string, v domreward.Vector) error {
	rewards := v.Rewards
	if rewards == nil {
		rewards = map[string]float64{}
	}

	data, err := json.Marshal(rewards)
	if err != nil {
		return fmt.Errorf("encode rewards %s/%d: %w", guid, v.WindowIndex, err)
	}
	field := strconv.Itoa(v.WindowIndex)
	if err := s.store.HSet(ctx, s.rewardsKey(guid), map[string]string{field: string(data)}); err != nil {
		return fmt.Errorf("rewards HSET %s/%d: %w", guid, v.WindowIndex, err)
	}

	line, err := json.Marshal(auditLine{
		GUID:        guid,
		Identity:    s.identity,
		WindowIndex: v.WindowIndex,
		Rewards:     rewards,
		Total:       v.Total(),
		SubmittedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode audit line %s/%d: %w", guid, v.WindowIndex, err)
	}
	if err := s.store.RPush(ctx, s.logKey(), string(line)); err != nil {
		return fmt.Errorf("rewards RPUSH %s/%d: %w", guid, v.WindowIndex, err)
	}

	for _, id := range v.Workers() {
		metrics.WorkerReward.Observe(rewards[id])
	}
	s.logger.Debug("Reward vector submitted",
		zap.String("conversation_guid", guid),
		zap.Int("window", v.WindowIndex),
		zap.Int("workers", len(rewards)))
	return nil
}

// Load returns the stored reward vectors of a conversation ordered by window index.
func (s *Store) Load(ctx context.Context, guid string) ([]domreward.Vector, error) {
	raw, err := s.store.HGetAll(ctx, s.rewardsKey(guid))
	if err != nil {
		return nil, fmt.Errorf("rewards HGETALL %s: %w", guid, err)
	}

	out := make([]domreward.Vector, 0, len(raw))
	for field, value := range raw {
		idx, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("rewards %s field %q: %w", guid, field, err)
		}
		var rewards map[string]float64
		if err := json.Unmarshal([]byte(value), &rewards); err != nil {
			return nil, fmt.Errorf("rewards %s window %d: %w", guid, idx, err)
		}
		out = append(out, domreward.Vector{WindowIndex: idx, Rewards: rewards})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WindowIndex < out[j].WindowIndex })
	return out, nil
}
