package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"market-sentiment-pipeline/internal/entity"
	"market-sentiment-pipeline/pkg/common"
	"market-sentiment-pipeline/pkg/logger"
	redisPkg "market-sentiment-pipeline/pkg/redis"

	"github.com/redis/go-redis/v9"
)

// NewStagingRepository creates a Redis-streams-backed StagingRepository. The
// pending stream doubles as the work queue; entries stay until explicitly
// removed or dead-lettered, so a crashed run loses nothing.
func NewStagingRepository(client *redisPkg.Client, log *logger.Logger, streamMaxLen int64) StagingRepository {
	return &stagingRepository{
		client:       client,
		logger:       log,
		streamMaxLen: streamMaxLen,
	}
}

type stagingRepository struct {
	client       *redisPkg.Client
	logger       *logger.Logger
	streamMaxLen int64
}

// Enqueue stages a validated item on the pending stream.
func (r *stagingRepository) Enqueue(ctx context.Context, item *entity.PendingItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal pending item: %w", err)
	}

	if err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamSentimentPending,
		Values: map[string]interface{}{"payload": payload},
		MaxLen: r.streamMaxLen,
		Approx: true,
	}).Err(); err != nil {
		return fmt.Errorf("failed to enqueue pending item: %w", err)
	}
	return nil
}

// FetchPending reads up to limit staged items in stream order. Entries with a
// payload that no longer decodes move to the dead-letter stream with their raw
// payload intact, so they cannot wedge the loop and nothing is discarded.
func (r *stagingRepository) FetchPending(ctx context.Context, limit int) ([]PendingMessage, error) {
	entries, err := r.client.XRangeN(ctx, common.RedisStreamSentimentPending, "-", "+", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending stream: %w", err)
	}

	messages := make([]PendingMessage, 0, len(entries))
	for _, e := range entries {
		msg, deadLetter := parsePendingEntry(e.ID, e.Values)
		if deadLetter != nil {
			r.logger.Error("Moving undecodable pending entry to dead letter",
				logger.StringField("entry_id", e.ID),
				logger.StringField("cause", deadLetter.Error),
			)
			if err := r.writeDeadLetter(ctx, *deadLetter); err != nil {
				// Keep the entry; it is retried on the next fetch.
				r.logger.Error("Failed to dead-letter undecodable entry", logger.ErrorField(err), logger.StringField("entry_id", e.ID))
				continue
			}
			r.removeQuietly(ctx, e.ID)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// parsePendingEntry decodes one stream entry into a PendingMessage. An entry
// that no longer decodes comes back as a dead letter carrying the raw payload
// in the item text, so the payload survives for manual inspection and replay.
func parsePendingEntry(id string, values map[string]interface{}) (PendingMessage, *entity.DeadLetterItem) {
	payload, ok := values["payload"].(string)
	if !ok {
		return PendingMessage{}, &entity.DeadLetterItem{
			Item:     entity.PendingItem{Text: fmt.Sprintf("%v", values)},
			Error:    "field 'payload' not found or not a string",
			FailedAt: time.Now(),
		}
	}

	var item entity.PendingItem
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		return PendingMessage{}, &entity.DeadLetterItem{
			Item:     entity.PendingItem{Text: payload},
			Error:    fmt.Sprintf("undecodable payload: %v", err),
			FailedAt: time.Now(),
		}
	}
	return PendingMessage{ID: id, Item: item}, nil
}

// Remove deletes a processed entry from the pending stream.
func (r *stagingRepository) Remove(ctx context.Context, id string) error {
	if err := r.client.XDel(ctx, common.RedisStreamSentimentPending, id).Err(); err != nil {
		return fmt.Errorf("failed to remove pending entry %s: %w", id, err)
	}
	return nil
}

// MoveToDeadLetter copies the original payload to the dead-letter stream and
// removes the pending entry. The item keeps its full payload for manual replay.
func (r *stagingRepository) MoveToDeadLetter(ctx context.Context, msg PendingMessage, cause error) error {
	deadLetter := entity.DeadLetterItem{
		Item:     msg.Item,
		Error:    cause.Error(),
		FailedAt: time.Now(),
	}

	if err := r.writeDeadLetter(ctx, deadLetter); err != nil {
		return err
	}
	return r.Remove(ctx, msg.ID)
}

func (r *stagingRepository) writeDeadLetter(ctx context.Context, deadLetter entity.DeadLetterItem) error {
	payload, err := json.Marshal(deadLetter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter item: %w", err)
	}

	if err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamSentimentDeadLetter,
		Values: map[string]interface{}{"payload": payload},
		MaxLen: r.streamMaxLen,
		Approx: true,
	}).Err(); err != nil {
		return fmt.Errorf("failed to write dead letter entry: %w", err)
	}
	return nil
}

// ListDeadLetters returns up to limit dead-lettered items in failure order.
func (r *stagingRepository) ListDeadLetters(ctx context.Context, limit int) ([]DeadLetterMessage, error) {
	entries, err := r.client.XRangeN(ctx, common.RedisStreamSentimentDeadLetter, "-", "+", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letter stream: %w", err)
	}

	messages := make([]DeadLetterMessage, 0, len(entries))
	for _, e := range entries {
		payload, ok := e.Values["payload"].(string)
		if !ok {
			continue
		}
		var deadLetter entity.DeadLetterItem
		if err := json.Unmarshal([]byte(payload), &deadLetter); err != nil {
			r.logger.Error("Failed to unmarshal dead letter item", logger.ErrorField(err), logger.StringField("entry_id", e.ID))
			continue
		}
		messages = append(messages, DeadLetterMessage{ID: e.ID, DeadLetter: deadLetter})
	}
	return messages, nil
}

// ReplayDeadLetters re-enqueues every dead-lettered item through the normal
// pipeline entry point and removes it from the dead-letter stream.
func (r *stagingRepository) ReplayDeadLetters(ctx context.Context) (int, error) {
	entries, err := r.client.XRange(ctx, common.RedisStreamSentimentDeadLetter, "-", "+").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read dead letter stream: %w", err)
	}

	replayed := 0
	for _, e := range entries {
		payload, ok := e.Values["payload"].(string)
		if !ok {
			continue
		}

		var deadLetter entity.DeadLetterItem
		if err := json.Unmarshal([]byte(payload), &deadLetter); err != nil {
			r.logger.Error("Skipping unreadable dead letter entry", logger.ErrorField(err), logger.StringField("entry_id", e.ID))
			continue
		}

		if err := r.Enqueue(ctx, &deadLetter.Item); err != nil {
			return replayed, err
		}
		if err := r.client.XDel(ctx, common.RedisStreamSentimentDeadLetter, e.ID).Err(); err != nil {
			return replayed, fmt.Errorf("failed to remove replayed dead letter entry %s: %w", e.ID, err)
		}
		replayed++
	}
	return replayed, nil
}

func (r *stagingRepository) removeQuietly(ctx context.Context, id string) {
	if err := r.Remove(ctx, id); err != nil {
		r.logger.Error("Failed to drop pending entry", logger.ErrorField(err), logger.StringField("entry_id", id))
	}
}
