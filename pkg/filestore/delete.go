// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package filestore

import (
	"context"

	"github.com/ayoung19/instant/pkg/storagekey"

	"github.com/rs/zerolog/log"
)

// Delete removes the object(s) addressing one file. While migrating, the
// path-addressed copy goes first, then the location-addressed one. A crash
// between the two leaves one scheme's copy behind; that is acceptable
// because deletion is idempotent and the caller's metadata-driven
// reconciliation retries it.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) error {
	if req.AppID == "" {
		return validationError("app id is required")
	}

	if req.Migrating && req.Path != "" {
		pathKey := storagekey.PartitionedPathKey(req.AppID, req.Path)
		if err := s.store.Delete(ctx, pathKey); err != nil {
			return &Error{
				Code:    ErrCodeDeleteFailed,
				Message: "delete path-addressed object",
				Key:     pathKey,
				Scheme:  "path",
				Err:     err,
			}
		}
	}

	if req.LocationID != "" {
		locKey := storagekey.LocationKey(req.AppID, req.LocationID)
		if err := s.store.Delete(ctx, locKey); err != nil {
			return &Error{
				Code:    ErrCodeDeleteFailed,
				Message: "delete location-addressed object",
				Key:     locKey,
				Scheme:  "location",
				Err:     err,
			}
		}
	}

	return nil
}

// DeleteAll removes many files of one tenant. Both key lists are built up
// front and submitted through the store's batched delete, which chunks to
// the provider's request limit. The whole call is safe to retry: deleting a
// missing key is not an error.
func (s *Service) DeleteAll(ctx context.Context, req BulkDeleteRequest) error {
	if req.AppID == "" {
		return validationError("app id is required")
	}

	if req.Migrating && len(req.Paths) > 0 {
		pathKeys := make([]string, 0, len(req.Paths))
		for _, p := range req.Paths {
			pathKeys = append(pathKeys, storagekey.PartitionedPathKey(req.AppID, p))
		}
		if err := s.store.DeleteBatch(ctx, pathKeys); err != nil {
			return &Error{
				Code:    ErrCodeDeleteFailed,
				Message: "bulk delete path-addressed objects",
				Scheme:  "path",
				Err:     err,
			}
		}
	}

	if len(req.LocationIDs) > 0 {
		locKeys := make([]string, 0, len(req.LocationIDs))
		for _, id := range req.LocationIDs {
			locKeys = append(locKeys, storagekey.LocationKey(req.AppID, id))
		}
		if err := s.store.DeleteBatch(ctx, locKeys); err != nil {
			return &Error{
				Code:    ErrCodeDeleteFailed,
				Message: "bulk delete location-addressed objects",
				Scheme:  "location",
				Err:     err,
			}
		}
	}

	log.Debug().
		Str("app_id", req.AppID).
		Int("paths", len(req.Paths)).
		Int("location_ids", len(req.LocationIDs)).
		Bool("migrating", req.Migrating).
		Msg("bulk deleted files")

	return nil
}
