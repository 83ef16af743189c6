// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ayoung19/instant/pkg/storagekey"

	"github.com/rs/zerolog/log"
)

// Upload writes the request body under the key scheme(s) the migration mode
// requires. While migrating, the same bytes go to the partitioned path key
// first and the location key second; otherwise only the location key is
// written.
//
// The body is materialized fully before the first write: the transport takes
// a single-pass stream, and the dual write needs identical bytes twice.
// There is no atomicity across the two writes. If the second write fails the
// legacy copy stays behind until the caller retries; the returned error's
// Key and Scheme say which write failed.
func (s *Service) Upload(ctx context.Context, req UploadRequest) error {
	if req.AppID == "" {
		return validationError("app id is required")
	}
	if req.LocationID == "" {
		return validationError("location id is required")
	}
	if req.Migrating && req.Path == "" {
		return validationError("path is required while migrating")
	}
	if req.Body == nil {
		return fmt.Errorf("%w: nil body", ErrUnsupportedInput)
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedInput, err)
	}
	size := int64(len(data))

	if req.Migrating {
		pathKey := storagekey.PartitionedPathKey(req.AppID, req.Path)
		if err := s.store.Put(ctx, pathKey, bytes.NewReader(data), size); err != nil {
			return &Error{
				Code:    ErrCodeWriteFailed,
				Message: "write path-addressed object",
				Key:     pathKey,
				Scheme:  "path",
				Err:     err,
			}
		}
	}

	locKey := storagekey.LocationKey(req.AppID, req.LocationID)
	if err := s.store.Put(ctx, locKey, bytes.NewReader(data), size); err != nil {
		return &Error{
			Code:    ErrCodeWriteFailed,
			Message: "write location-addressed object",
			Key:     locKey,
			Scheme:  "location",
			Err:     err,
		}
	}

	log.Debug().
		Str("app_id", req.AppID).
		Str("location_id", req.LocationID).
		Bool("migrating", req.Migrating).
		Int64("size", size).
		Msg("uploaded file")

	return nil
}
