// Package messaging defines the event publishing contract used by the
// service to announce purchases.
package messaging

import (
	"context"
)

// PurchasesMadeSubject is the JetStream subject purchase events go to.
const PurchasesMadeSubject = "stores.purchases.made"

// PurchasesStream is the JetStream stream holding purchase events.
const PurchasesStream = "STORE_PURCHASES"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
