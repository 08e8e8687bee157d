package review

import (
	"context"
	"fmt"
	"log"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/tackroom/saddletrack/internal/kafka"
	"github.com/tackroom/saddletrack/internal/orders"
	"github.com/tackroom/saddletrack/internal/redisx"
)

// FlagStore persists review flags.
type FlagStore interface {
	Record(ctx context.Context, f Flag) error
}

// Dedup claims an event id before processing; Release frees a failed claim
// so the redelivery gets another attempt.
type Dedup interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Service consumes review.required events and persists them as open flags.
type Service struct {
	Repo        FlagStore
	Dedup       Dedup
	ServiceName string
}

// HandleReviewRequired is installed as the consumer handler.
func (s *Service) HandleReviewRequired(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventReviewRequired {
		return nil // ignore
	}

	// claim the event id up front; SetNX means a concurrent redelivery of
	// the same event cannot also pass and double-flag
	dkey := fmt.Sprintf(redisx.KeyEventDedup, "review", env.EventID)
	claimed, err := s.Dedup.Claim(ctx, dkey)
	if err == nil && !claimed {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.ReviewRequiredPayload](env.Payload)
	if err != nil {
		s.releaseClaim(ctx, dkey)
		return err
	}

	err = s.Repo.Record(ctx, Flag{
		Shop:              p.Shop,
		ShopifyOrderID:    p.ShopifyOrderID,
		ShopifyLineItemID: p.ShopifyLineItemID,
		ProductTitle:      p.ProductTitle,
		OldQuantity:       p.OldQuantity,
		NewQuantity:       p.NewQuantity,
		SerialCount:       p.SerialCount,
	})
	if err != nil {
		// free the claim; the uncommitted offset redelivers this event
		s.releaseClaim(ctx, dkey)
		return err
	}

	log.Printf("review flagged: %s %s qty %d -> %d (%d serials)",
		p.Shop, p.ProductTitle, p.OldQuantity, p.NewQuantity, p.SerialCount)
	return nil
}

func (s *Service) releaseClaim(ctx context.Context, key string) {
	if err := s.Dedup.Release(ctx, key); err != nil {
		log.Printf("review: release dedup %s: %v", key, err)
	}
}
