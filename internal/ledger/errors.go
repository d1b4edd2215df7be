// Package ledger implements the store record state machine: the bounded
// product catalog, the bounded receipt journal and the aggregate that binds
// them together with the owner and purchase counter.
package ledger

import "errors"

var ErrUnauthorized = errors.New("caller is not the store owner")

var ErrStoreNotFound = errors.New("store not found")
var ErrStoreExists = errors.New("store already exists")

var ErrProductNotFound = errors.New("product not found")
var ErrDuplicateName = errors.New("product with this name already exists")
var ErrNameEmpty = errors.New("product name is empty")
var ErrNameTooLong = errors.New("name exceeds the maximum length")
var ErrStringTooLong = errors.New("value exceeds the maximum length")
var ErrInvalidName = errors.New("store name contains invalid characters")
var ErrCapacityExceeded = errors.New("catalog capacity reached")

var ErrAssetMismatch = errors.New("payment asset does not match the product")
var ErrPaymentFailed = errors.New("payment failed")
var ErrInsufficientFunding = errors.New("insufficient funding for storage deposit")

// ErrCounterOverflow indicates an invariant breach: the 64-bit purchase
// counter would wrap. It is never expected in practice.
var ErrCounterOverflow = errors.New("purchase counter overflow")
