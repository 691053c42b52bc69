package engine

import "errors"

// Sentinel errors, in the teacher's style (orderbook.go already declared
// ErrNotEnoughLiquidity/ErrRejection this way). The API adapter reports
// ErrNotFound as 404 and every other error, ErrInvalidInput included, as 500.
var (
	// ErrInvalidInput covers nonpositive price/volume; the API adapter also
	// uses it for a malformed body or an unrecognised side.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrNotFound covers cancellation of an unknown order id.
	ErrNotFound = errors.New("order not found")
	// ErrUnknownAsset covers a PlaceOrder/CancelOrder against an asset the
	// engine was not configured with.
	ErrUnknownAsset = errors.New("unknown asset type")
)
