// Package cache holds the response-body cache used by the chart endpoint:
// serialized envelopes keyed by symbol and range, with short TTLs tuned to
// the bar interval.
package cache

import "time"

// BytesCache stores raw response bytes with a TTL.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
