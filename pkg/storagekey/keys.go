// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

// Package storagekey derives and parses the object keys used to address
// tenant files in the blob store. Two addressing schemes coexist while the
// location-id migration is in flight:
//
//	legacy:      {appID}/{path}
//	partitioned: {appID}/{bin(path)}/{path}
//	location:    {appID}/{bin(locationID)}/{locationID}
//
// The bin spreads a tenant's objects across the provider's internal
// partitioning to avoid hot-spotting.
package storagekey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidKeyFormat is returned when a stored key does not have the
// segments the scheme requires. This indicates data corruption rather than a
// transient failure; callers must not retry.
var ErrInvalidKeyFormat = errors.New("storagekey: invalid key format")

// BinCount is the number of partition bins. It is a cross-implementation
// contract: changing it breaks key derivation for every object already
// stored under a binned scheme.
const BinCount = 10

// Bin returns the partition bin for an identifier.
//
// The hash is the 32-bit polynomial string hash h = 31*h + b over the
// identifier's bytes, evaluated in signed int32 arithmetic, absolute value
// modulo BinCount. Like BinCount, the choice of hash is a contract shared
// with every other producer of these keys and must not change.
func Bin(identifier string) int {
	var h int32
	for _, b := range []byte(identifier) {
		h = 31*h + int32(b)
	}
	n := int64(h)
	if n < 0 {
		n = -n
	}
	return int(n % BinCount)
}

// LegacyKey returns the flat pre-migration key for a tenant file path.
func LegacyKey(appID, path string) string {
	return appID + "/" + path
}

// PartitionedPathKey returns the binned key for a tenant file path. A single
// leading slash on the path is stripped so the key never contains an empty
// segment.
func PartitionedPathKey(appID, path string) string {
	stripped := strings.TrimPrefix(path, "/")
	return appID + "/" + strconv.Itoa(Bin(path)) + "/" + stripped
}

// LocationKey returns the key for a file addressed by its location id.
func LocationKey(appID, locationID string) string {
	return appID + "/" + strconv.Itoa(Bin(locationID)) + "/" + locationID
}

// AppID extracts the tenant segment from any stored key.
func AppID(key string) (string, error) {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) < 2 || parts[0] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKeyFormat, key)
	}
	return parts[0], nil
}

// BinSegment extracts the bin segment from a binned key. It is returned as
// the raw string segment so callers can compare it against a re-derived bin.
func BinSegment(key string) (string, error) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidKeyFormat, key)
	}
	return parts[1], nil
}

// IdentifierFromPartitionedKey returns everything after the bin segment of a
// binned key. For location keys this is the location id; for
// partitioned-path keys it is the stripped file path, slashes included.
func IdentifierFromPartitionedKey(key string) (string, error) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidKeyFormat, key)
	}
	return parts[2], nil
}

// IdentifierFromLegacyKey returns everything after the tenant segment of a
// flat legacy key.
func IdentifierFromLegacyKey(key string) (string, error) {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidKeyFormat, key)
	}
	return parts[1], nil
}
