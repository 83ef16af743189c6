// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestore maps tenant file operations onto object-store keys,
// keeping the legacy path-addressed scheme and the location-id scheme in
// sync while the storage migration is in flight.
//
// Every operation takes a migrating snapshot captured by the caller, so one
// logical operation never observes two migration modes. Dual-scheme writes
// and deletes run sequentially, legacy first; the two schemes are eventually
// consistent, not atomic. A partial failure is reported with the key and
// scheme that failed and is safe to retry, since all operations here are
// idempotent per key.
package filestore

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// URLExpiry is the validity window of issued access URLs. It is also the
// SigV4 presigning maximum, so it cannot be raised without changing the
// access mechanism.
const URLExpiry = 7 * 24 * time.Hour

// ObjectStore is the object-store capability the storage layer consumes.
// *s3client.Client satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	DeleteBatch(ctx context.Context, keys []string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Service implements the tenant file storage operations.
type Service struct {
	store ObjectStore
}

// NewService creates a Service backed by the given store.
func NewService(store ObjectStore) *Service {
	return &Service{store: store}
}

// NewLocationID mints a location id for a newly stored file. Location ids
// are opaque and tenant-scoped; the metadata catalog records the assignment.
func NewLocationID() string {
	return uuid.NewString()
}

// UploadRequest describes one file upload.
type UploadRequest struct {
	AppID      string
	Path       string
	LocationID string

	// Migrating is the caller's snapshot of the migration flag.
	Migrating bool

	// Body is read to completion before any write is issued.
	Body io.Reader
}

// DeleteRequest describes one file deletion.
type DeleteRequest struct {
	AppID      string
	Path       string
	LocationID string
	Migrating  bool
}

// BulkDeleteRequest describes deletion of many files of one tenant, such as
// a whole-app wipe. Paths and LocationIDs are independent lists: paths feed
// the legacy scheme, location ids the current one.
type BulkDeleteRequest struct {
	AppID       string
	Paths       []string
	LocationIDs []string
	Migrating   bool
}

// URLRequest describes a request for a time-bounded read URL.
type URLRequest struct {
	AppID      string
	Path       string
	LocationID string
	Migrating  bool
}
