package kafka

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when processing succeeded and the offset may
// be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// Consumer reads a consumer-group topic with manual commits and fans messages
// out to a fixed worker pool. An offset commits only after its handler
// returns nil, so a crash mid-handler redelivers.
type Consumer struct {
	r       *kafka.Reader
	topic   string
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, topic: topic, workers: workers}
}

// Start blocks until the context is cancelled or the reader fails. All
// in-flight handlers finish before it returns.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	var wg sync.WaitGroup

	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if err := h(ctx, m); err != nil {
					log.Printf("consume %s offset %d: %v", c.topic, m.Offset, err)
					// leave the offset uncommitted; redelivery will retry
					time.Sleep(200 * time.Millisecond)
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					log.Printf("commit %s offset %d: %v", c.topic, m.Offset, err)
				}
			}
		}()
	}

	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			close(jobs)
			wg.Wait()
			// quiet exit during shutdown
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil
		}
	}
}
