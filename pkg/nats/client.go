// Package nats wraps NATS JetStream connectivity and the event publisher.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/storeledger/storeledger/pkg/messaging"
)

func NewClient(url string, timeout time.Duration) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Timeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func NewJetStreamContext(nc *nats.Conn) (jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return js, nil
}

// EnsurePurchasesStream creates or updates the stream that holds purchase
// events so publishers and consumers can start in any order.
func EnsurePurchasesStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     messaging.PurchasesStream,
		Subjects: []string{messaging.PurchasesMadeSubject},
	})
	if err != nil {
		return fmt.Errorf("failed to ensure purchases stream: %w", err)
	}
	return nil
}
