// Package notifier consumes purchase events from JetStream and relays them to
// the store's telegram channel.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/storeledger/storeledger/pkg/config"
	"github.com/storeledger/storeledger/pkg/messaging/events"
	"golang.org/x/sync/errgroup"
)

// Start initializes the NATS JetStream consumer and starts multiple worker goroutines to process messages.
func Start(ctx context.Context, js jetstream.JetStream, subscriberCfg config.SubscriberConfig, sender Sender, logger *slog.Logger) error {
	cfg := jetstream.ConsumerConfig{
		FilterSubject: subscriberCfg.Subject,
		Durable:       subscriberCfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, subscriberCfg.Stream, cfg)
	if err != nil {
		return err
	}
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < subscriberCfg.Workers; i++ {
		g.Go(func() error {
			return runWorker(gCtx, consumer, subscriberCfg.Timeout, subscriberCfg.Interval, sender, logger)
		})
	}
	return g.Wait()
}

// runWorker fetches messages from the NATS JetStream consumer and processes them.
func runWorker(ctx context.Context, consumer jetstream.Consumer, timeout time.Duration, interval time.Duration, sender Sender, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			// ctx was cancelled or timed out (e.g., application shutdown)
			return ctx.Err()
		default:
			batch, err := consumer.Fetch(1, jetstream.FetchMaxWait(timeout))
			if err != nil {
				// if the error is a timeout, we can just continue to the next iteration
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				logger.Error("failed to fetch messages", "error", err)
				// for other errors, we can log and retry
				time.Sleep(interval)
				continue
			}
			for msg := range batch.Messages() {
				handleMessage(ctx, msg, sender, logger)
			}
		}
	}
}

// ackableMsg is the slice of jetstream.Msg the handler needs.
type ackableMsg interface {
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
}

// handleMessage processes a single purchase event. Events without a telegram
// channel are acked and dropped; send failures are nacked for redelivery.
func handleMessage(ctx context.Context, msg ackableMsg, sender Sender, logger *slog.Logger) {
	if msg == nil {
		logger.Error("received nil message")
		return
	}
	var event events.PurchaseMadeEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error("failed to unmarshal message", "error", err, "subject", msg.Subject())
		if err := msg.Nak(); err != nil {
			logger.Error("failed to nack message", "error", err)
		}
		return
	}

	logger.Info("received purchase event",
		slog.String("store", event.StoreName),
		slog.Uint64("receipt_id", event.ReceiptID),
		slog.String("product", event.ProductName))

	if event.TelegramChannelID == "" {
		logger.Debug("store has no telegram channel, dropping event", slog.String("store", event.StoreName))
		if err := msg.Ack(); err != nil {
			logger.Error("failed to ack message", "error", err)
		}
		return
	}

	if err := sender.Send(ctx, event.TelegramChannelID, formatMessage(event)); err != nil {
		logger.Error("failed to send notification", "error", err, "store", event.StoreName)
		if err := msg.Nak(); err != nil {
			logger.Error("failed to nack message", "error", err)
		}
		return
	}

	if err := msg.Ack(); err != nil {
		logger.Error("failed to ack message", "error", err)
	}
}

// formatMessage renders the text pushed to the store channel.
func formatMessage(event events.PurchaseMadeEvent) string {
	return fmt.Sprintf("New order #%d at %s: %s for %d (table %d)",
		event.ReceiptID, event.StoreName, event.ProductName, event.Price, event.TableNumber)
}
