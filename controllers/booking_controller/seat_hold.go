package booking_controller

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/busline/logger"
	"github.com/redis/go-redis/v9"
)

const (
	redisSeatHoldPrefix = "seat_hold:"
	seatHoldExpiry      = 10 * time.Minute
)

// HoldService keeps short-lived per-seat holds in Redis while a commuter
// completes the booking form. Holds are an optimization only: the conditional
// write in the reservation coordinator is what actually prevents double
// booking, so an expired or missing hold never compromises correctness.
type HoldService struct {
	Redis *redis.Client
}

func NewHoldService(rdb *redis.Client) *HoldService {
	return &HoldService{Redis: rdb}
}

func seatHoldKey(tripID uuid.UUID, seat int) string {
	return fmt.Sprintf("%s%s:%d", redisSeatHoldPrefix, tripID, seat)
}

// HoldSeats places a 10-minute hold on each seat for the given user. If any
// seat is already held by someone else, previously placed holds from this
// call are dropped and the conflicting seats are reported.
func (h *HoldService) HoldSeats(ctx context.Context, tripID uuid.UUID, userID uuid.UUID, seats []int) error {
	var held []int
	for _, seat := range seats {
		key := seatHoldKey(tripID, seat)

		current, err := h.Redis.Get(ctx, key).Result()
		if err == nil && current == userID.String() {
			held = append(held, seat)
			continue
		} else if err != nil && err != redis.Nil {
			h.ReleaseHolds(ctx, tripID, userID, held)
			return fmt.Errorf("failed to check seat hold: %w", err)
		}

		set, err := h.Redis.SetNX(ctx, key, userID.String(), seatHoldExpiry).Result()
		if err != nil {
			h.ReleaseHolds(ctx, tripID, userID, held)
			return fmt.Errorf("failed to hold seat %d: %w", seat, err)
		}
		if !set {
			h.ReleaseHolds(ctx, tripID, userID, held)
			return fmt.Errorf("seat %d was just held by another request", seat)
		}
		held = append(held, seat)
	}

	logger.InfoLogger.Infof("Held seats %v on trip %s for user %s for %v", seats, tripID, userID, seatHoldExpiry)
	return nil
}

// ReleaseHolds drops this user's holds on the given seats. Holds owned by
// other users are left alone.
func (h *HoldService) ReleaseHolds(ctx context.Context, tripID uuid.UUID, userID uuid.UUID, seats []int) {
	for _, seat := range seats {
		key := seatHoldKey(tripID, seat)
		current, err := h.Redis.Get(ctx, key).Result()
		if err != nil || current != userID.String() {
			continue
		}
		if err := h.Redis.Del(ctx, key).Err(); err != nil {
			logger.ErrorLogger.Errorf("Failed to release hold on seat %d of trip %s: %v", seat, tripID, err)
		}
	}
}
