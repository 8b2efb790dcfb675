// README: Availability and offer-dispatch state backed by Redis sets.
package courier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mandado/internal/types"
)

const (
	availableSetKey    = "couriers:available"
	lastAvailablePfx   = "courier:%s:last_available_at"
	businessOpenPfx    = "business:%s:open"
	dispatchKeyPrefix  = "offer:order:%s:dispatched_at"
	notifiedKeyPrefix  = "offer:order:%s:notified"
	// offers resolve well within a day; keys self-clean after that
	offerKeyTTL = 24 * time.Hour
)

type Store struct {
	redis *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{redis: rdb}
}

func (s *Store) SetAvailable(ctx context.Context, id types.ID, available bool) error {
	if !available {
		return s.redis.SRem(ctx, availableSetKey, string(id)).Err()
	}
	pipe := s.redis.Pipeline()
	pipe.SAdd(ctx, availableSetKey, string(id))
	pipe.Set(ctx, fmt.Sprintf(lastAvailablePfx, string(id)),
		time.Now().UTC().Format(time.RFC3339), 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) IsAvailable(ctx context.Context, id types.ID) (bool, error) {
	return s.redis.SIsMember(ctx, availableSetKey, string(id)).Result()
}

func (s *Store) AvailableCouriers(ctx context.Context) ([]types.ID, error) {
	members, err := s.redis.SMembers(ctx, availableSetKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(members))
	for i, m := range members {
		ids[i] = types.ID(m)
	}
	return ids, nil
}

func (s *Store) LastAvailableAt(ctx context.Context, id types.ID) (time.Time, bool, error) {
	val, err := s.redis.Get(ctx, fmt.Sprintf(lastAvailablePfx, string(id))).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func (s *Store) SetBusinessOpen(ctx context.Context, id types.ID, open bool) error {
	val := "0"
	if open {
		val = "1"
	}
	return s.redis.Set(ctx, fmt.Sprintf(businessOpenPfx, string(id)), val, 0).Err()
}

func (s *Store) IsBusinessOpen(ctx context.Context, id types.ID) (bool, error) {
	val, err := s.redis.Get(ctx, fmt.Sprintf(businessOpenPfx, string(id))).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

// RecordDispatch records when an order's offer was broadcast and which
// couriers were notified.
func (s *Store) RecordDispatch(ctx context.Context, orderID types.ID, courierIDs []types.ID) error {
	pipe := s.redis.Pipeline()
	pipe.Set(ctx, fmt.Sprintf(dispatchKeyPrefix, string(orderID)),
		time.Now().UTC().Format(time.RFC3339), offerKeyTTL)
	if len(courierIDs) > 0 {
		members := make([]interface{}, len(courierIDs))
		for i, id := range courierIDs {
			members[i] = string(id)
		}
		key := fmt.Sprintf(notifiedKeyPrefix, string(orderID))
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, offerKeyTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// DispatchedAt returns when the order's offer was first broadcast, if ever.
func (s *Store) DispatchedAt(ctx context.Context, orderID types.ID) (time.Time, bool, error) {
	val, err := s.redis.Get(ctx, fmt.Sprintf(dispatchKeyPrefix, string(orderID))).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
