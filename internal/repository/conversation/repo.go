package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/convscore/internal/db"
	"github.com/kailas-cloud/convscore/internal/domain"
	domconv "github.com/kailas-cloud/convscore/internal/domain/conversation"
)

// maxSkips bounds how many dangling queue entries one Reserve call discards.
const maxSkips = 16

// store is the consumer interface for conversations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	RPush(ctx context.Context, key string, values ...string) error
	LPop(ctx context.Context, key string) (string, error)
	LLen(ctx context.Context, key string) (int64, error)
}

// Repo stores the conversation queue, reservations and results.
type Repo struct {
	store          store
	prefix         string
	reservationTTL time.Duration
	logger         *zap.Logger
}

// New creates a conversation repository.
func New(s store, prefix string, reservationTTL time.Duration, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, prefix: prefix, reservationTTL: reservationTTL, logger: logger}
}

func (r *Repo) queueKey() string               { return r.prefix + "queue" }
func (r *Repo) conversationKey(g string) string { return r.prefix + "conversation:" + g }
func (r *Repo) reservedKey(g string) string     { return r.prefix + "reserved:" + g }
func (r *Repo) resultKey(g string) string       { return r.prefix + "result:" + g }

// Enqueue stores a conversation and appends it to the work queue.
func (r *Repo) Enqueue(ctx context.Context, conv domconv.Conversation) error {
	data, err := domconv.Encode(conv)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped by Encode
	}
	if err := r.store.Set(ctx, r.conversationKey(conv.GUID()), data, 0); err != nil {
		return fmt.Errorf("store conversation %s: %w", conv.GUID(), err)
	}
	if err := r.store.RPush(ctx, r.queueKey(), conv.GUID()); err != nil {
		return fmt.Errorf("enqueue conversation %s: %w", conv.GUID(), err)
	}
	return nil
}

// QueueLen returns the number of conversations waiting.
func (r *Repo) QueueLen(ctx context.Context) (int64, error) {
	n, err := r.store.LLen(ctx, r.queueKey())
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

// Reserve pops the next conversation and marks it reserved by identity.
// Returns domain.ErrNoWorkAvailable when the queue is empty. Queue entries
// whose body is missing or malformed are logged and skipped.
func (r *Repo) Reserve(ctx context.Context, identity string) (domconv.Conversation, error) {
	for range maxSkips {
		guid, err := r.store.LPop(ctx, r.queueKey())
		if errors.Is(err, db.ErrKeyNotFound) {
			return domconv.Conversation{}, domain.ErrNoWorkAvailable
		}
		if err != nil {
			return domconv.Conversation{}, fmt.Errorf("pop queue: %w", err)
		}

		conv, ok, err := r.load(ctx, guid)
		if err != nil {
			return domconv.Conversation{}, err
		}
		if !ok {
			continue
		}

		if err := r.store.Set(ctx, r.reservedKey(guid), []byte(identity), r.reservationTTL); err != nil {
			return domconv.Conversation{}, fmt.Errorf("reserve %s: %w", guid, err)
		}
		return conv, nil
	}
	return domconv.Conversation{}, domain.ErrNoWorkAvailable
}

func (r *Repo) load(ctx context.Context, guid string) (domconv.Conversation, bool, error) {
	data, err := r.store.Get(ctx, r.conversationKey(guid))
	if errors.Is(err, db.ErrKeyNotFound) {
		r.logger.Warn("Queued conversation has no body, skipping", zap.String("conversation_guid", guid))
		return domconv.Conversation{}, false, nil
	}
	if err != nil {
		return domconv.Conversation{}, false, fmt.Errorf("get conversation %s: %w", guid, err)
	}

	conv, err := domconv.Decode(data)
	if err != nil {
		r.logger.Warn("Queued conversation is malformed, skipping",
			zap.String("conversation_guid", guid), zap.Error(err))
		return domconv.Conversation{}, false, nil
	}
	return conv, true, nil
}

// Finalize writes a result record. The validator record also releases the reservation.
func (r *Repo) Finalize(ctx context.Context, f domconv.Finalization) error {
	value, err := encodeResult(f)
	if err != nil {
		return fmt.Errorf("encode %s result for %s: %w", f.Kind, f.GUID, err)
	}
	if err := r.store.HSet(ctx, r.resultKey(f.GUID), map[string]string{resultField(f): value}); err != nil {
		return fmt.Errorf("write %s result for %s: %w", f.Kind, f.GUID, err)
	}
	if f.Kind != domconv.KindValidator {
		return nil
	}
	if err := r.store.Del(ctx, r.reservedKey(f.GUID)); err != nil {
		return fmt.Errorf("release %s: %w", f.GUID, err)
	}
	return nil
}

// Results returns the stored result records of a conversation keyed by field
// ("validator", "window:<idx>"). An unknown guid yields an empty map.
func (r *Repo) Results(ctx context.Context, guid string) (map[string]json.RawMessage, error) {
	m, err := r.store.HGetAll(ctx, r.resultKey(guid))
	if err != nil {
		return nil, fmt.Errorf("read results %s: %w", guid, err)
	}
	out := make(map[string]json.RawMessage, len(m))
	for field, value := range m {
		if !json.Valid([]byte(value)) {
			return nil, fmt.Errorf("result %s field %q is not JSON", guid, field)
		}
		out[field] = json.RawMessage(value)
	}
	return out, nil
}
