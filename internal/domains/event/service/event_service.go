package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ticketing-backend/internal/domains/event/model"
	"ticketing-backend/internal/domains/event/repository"
	"ticketing-backend/pkg/cache"
	"ticketing-backend/pkg/logger"
)

// snapshotTTL keeps the cached event fresh enough that sold-out tiers
// disappear from checkout within a minute even if an invalidation is
// lost.
const snapshotTTL = 60 * time.Second

type eventService struct {
	repo  repository.Repository
	cache cache.Cache
}

func NewEventService(repo repository.Repository, c cache.Cache) EventService {
	return &eventService{repo: repo, cache: c}
}

func snapshotKey(eventID uuid.UUID) string {
	return fmt.Sprintf("event:snapshot:%s", eventID)
}

func (s *eventService) GetPurchasableEvent(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if !event.IsPurchasable() {
		return nil, model.ErrEventNotPurchasable
	}

	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	key := snapshotKey(eventID)

	if s.cache != nil {
		var cached model.Event
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			// Cache trouble must not block checkout.
			logger.Warn("event snapshot cache read failed", map[string]interface{}{
				"eventId": eventID.String(),
				"error":   err.Error(),
			})
		} else if hit {
			return &cached, nil
		}
	}

	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, event, snapshotTTL); err != nil {
			logger.Warn("event snapshot cache write failed", map[string]interface{}{
				"eventId": eventID.String(),
				"error":   err.Error(),
			})
		}
	}

	return event, nil
}

func (s *eventService) InvalidateSnapshot(ctx context.Context, eventID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, snapshotKey(eventID)); err != nil {
		logger.Warn("event snapshot invalidation failed", map[string]interface{}{
			"eventId": eventID.String(),
			"error":   err.Error(),
		})
	}
}
