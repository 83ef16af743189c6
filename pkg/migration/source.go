// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

// Package migration exposes the switch that controls the storage key
// migration. While the switch reports migrating, every write and delete must
// keep the legacy path-addressed scheme in sync with location-id addressing.
//
// Callers read a snapshot once per operation and pass the plain bool into
// the storage layer, so a flag flip mid-operation never splits a single
// upload or delete across modes.
package migration

import "context"

// Source reports whether the system is in dual-write migration mode.
//
// The external flag is phrased positively ("use location id"); migrating is
// its negation. Implementations own that translation so callers only ever
// see the migrating bool.
type Source interface {
	Migrating(ctx context.Context) bool
}

// Static is a fixed-value Source, used in tests and for deployments that
// have finished (or never started) the migration.
type Static bool

func (s Static) Migrating(context.Context) bool {
	return bool(s)
}
