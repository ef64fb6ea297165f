// Package storage holds the content addressing shared by the storage backends.
//
// Every payload is addressed by a CIDv1 (raw codec, sha2-256 multihash), so
// storing the same payload twice yields the same locator and a fetched
// payload can be checked against the locator it was requested by.
package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

var prefix = cid.Prefix{
	Version:  1,
	Codec:    cid.Raw,
	MhType:   mh.SHA2_256,
	MhLength: -1,
}

// Locator returns the content identifier of payload.
func Locator(payload []byte) (string, error) {
	c, err := prefix.Sum(payload)
	if err != nil {
		return "", fmt.Errorf("failed to compute content identifier: %w", err)
	}
	return c.String(), nil
}

// ParseLocator validates a locator and returns its canonical form.
func ParseLocator(locator string) (string, error) {
	c, err := cid.Decode(locator)
	if err != nil {
		return "", fmt.Errorf("invalid locator %q: %w", locator, err)
	}
	return c.String(), nil
}

// Verify checks that payload hashes to locator.
func Verify(locator string, payload []byte) error {
	want, err := cid.Decode(locator)
	if err != nil {
		return fmt.Errorf("invalid locator %q: %w", locator, err)
	}
	got, err := want.Prefix().Sum(payload)
	if err != nil {
		return fmt.Errorf("failed to compute content identifier: %w", err)
	}
	if !got.Equals(want) {
		return fmt.Errorf("payload does not match locator %s", locator)
	}
	return nil
}
