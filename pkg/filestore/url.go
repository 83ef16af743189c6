// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package filestore

import (
	"context"

	"github.com/ayoung19/instant/pkg/storagekey"
)

// ReadKey returns the key that is authoritative for reading a file: the
// path-addressed key while migrating (old clients keep resolving paths), the
// location key otherwise. ok is false when no readable object exists for the
// file, which happens when it has no location id assigned and the migration
// is over.
func ReadKey(appID, path, locationID string, migrating bool) (key string, ok bool) {
	switch {
	case migrating && path != "":
		return storagekey.PartitionedPathKey(appID, path), true
	case locationID != "":
		return storagekey.LocationKey(appID, locationID), true
	}
	return "", false
}

// SignedURL issues a time-bounded GET URL for whichever key scheme is
// authoritative for reads (see ReadKey).
//
// An empty URL with a nil error means there is no readable object for the
// request. Each call produces a fresh URL; URLs are not cached and not
// renewable.
func (s *Service) SignedURL(ctx context.Context, req URLRequest) (string, error) {
	if req.AppID == "" {
		return "", validationError("app id is required")
	}

	key, ok := ReadKey(req.AppID, req.Path, req.LocationID, req.Migrating)
	if !ok {
		return "", nil
	}

	url, err := s.store.PresignGet(ctx, key, URLExpiry)
	if err != nil {
		return "", &Error{
			Code:    ErrCodePresignFailed,
			Message: "presign read url",
			Key:     key,
			Err:     err,
		}
	}
	return url, nil
}
