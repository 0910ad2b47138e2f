package service

import (
	"crypto/rand"
	"fmt"
)

// TrackingAlphabet omits I, O, 0 and 1. Its length of 32 divides 256, so
// masking a random byte selects every symbol with equal probability.
const TrackingAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// TrackingCodeLength is the number of symbols in a tracking code.
const TrackingCodeLength = 8

// NewTrackingCode returns a random tracking code.
func NewTrackingCode() (string, error) {
	buf := make([]byte, TrackingCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = TrackingAlphabet[b&31]
	}
	return string(buf), nil
}
