package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/tackroom/saddletrack/internal/kafka"
	"github.com/tackroom/saddletrack/internal/orders"
)

type memFlagStore struct {
	flags    []Flag
	failures int
}

func (s *memFlagStore) Record(_ context.Context, f Flag) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("db down")
	}
	s.flags = append(s.flags, f)
	return nil
}

type memDedup struct{ claims map[string]bool }

func newMemDedup() *memDedup { return &memDedup{claims: map[string]bool{}} }

func (d *memDedup) Claim(_ context.Context, key string) (bool, error) {
	if d.claims[key] {
		return false, nil
	}
	d.claims[key] = true
	return true, nil
}

func (d *memDedup) Release(_ context.Context, key string) error {
	delete(d.claims, key)
	return nil
}

func reviewMessage(eventID string) kafkago.Message {
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    orders.EventReviewRequired,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "api",
		Payload: kafkax.MustMarshal(orders.ReviewRequiredPayload{
			Shop:              "tack.myshopify.com",
			ShopifyOrderID:    "gid://shopify/Order/5001",
			ShopifyLineItemID: "gid://shopify/LineItem/9001",
			ProductTitle:      "Jump Saddle 17.5",
			OldQuantity:       3,
			NewQuantity:       2,
			SerialCount:       3,
		}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleReviewRequiredRecordsFlag(t *testing.T) {
	store := &memFlagStore{}
	svc := &Service{Repo: store, Dedup: newMemDedup(), ServiceName: "reviewworker"}

	require.NoError(t, svc.HandleReviewRequired(context.Background(), reviewMessage("ev-1")))

	require.Len(t, store.flags, 1)
	f := store.flags[0]
	assert.Equal(t, "gid://shopify/LineItem/9001", f.ShopifyLineItemID)
	assert.Equal(t, 3, f.OldQuantity)
	assert.Equal(t, 2, f.NewQuantity)
	assert.Equal(t, 3, f.SerialCount)
}

func TestHandleReviewRequiredRedeliveryFlagsOnce(t *testing.T) {
	store := &memFlagStore{}
	svc := &Service{Repo: store, Dedup: newMemDedup()}

	require.NoError(t, svc.HandleReviewRequired(context.Background(), reviewMessage("ev-1")))
	require.NoError(t, svc.HandleReviewRequired(context.Background(), reviewMessage("ev-1")))

	assert.Len(t, store.flags, 1, "redelivery of the same event id must not double-flag")
}

func TestHandleReviewRequiredFailureFreesClaimForRetry(t *testing.T) {
	store := &memFlagStore{failures: 1}
	dedup := newMemDedup()
	svc := &Service{Repo: store, Dedup: dedup}

	err := svc.HandleReviewRequired(context.Background(), reviewMessage("ev-1"))
	require.Error(t, err)
	assert.Empty(t, dedup.claims, "a failed record must release its claim")

	// the uncommitted offset redelivers; the retry must get through
	require.NoError(t, svc.HandleReviewRequired(context.Background(), reviewMessage("ev-1")))
	assert.Len(t, store.flags, 1)
}

func TestHandleReviewRequiredIgnoresOtherEventTypes(t *testing.T) {
	store := &memFlagStore{}
	dedup := newMemDedup()
	svc := &Service{Repo: store, Dedup: dedup}

	env := orders.Envelope{EventID: "ev-2", EventType: orders.EventOrderSynced}
	m := kafkago.Message{Value: kafkax.MustMarshal(env)}

	require.NoError(t, svc.HandleReviewRequired(context.Background(), m))
	assert.Empty(t, store.flags)
	assert.Empty(t, dedup.claims)
}
