// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

// Package usage reconciles per-tenant storage usage by enumerating the
// bucket directly, bypassing the metadata catalog. It is a drift detector:
// the catalog's size bookkeeping is compared against what is actually
// stored. Run it as an infrequent batch job, not on the request path.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/ayoung19/instant/pkg/filestore"
	"github.com/ayoung19/instant/pkg/s3client"
	"github.com/ayoung19/instant/pkg/storagekey"

	"github.com/rs/zerolog/log"
)

// ObjectLister is the single store capability the auditor consumes.
// *s3client.Client satisfies it.
type ObjectLister interface {
	List(ctx context.Context, token string) (*s3client.ListPage, error)
}

// AppUsage is the audited storage footprint of one tenant.
type AppUsage struct {
	TotalBytes int64 `json:"total_bytes"`
	FileCount  int64 `json:"file_count"`
}

// Report is the result of a full-bucket audit.
type Report struct {
	// Apps maps app id to its aggregated usage. Unordered.
	Apps map[string]AppUsage `json:"apps"`

	// ObjectCount is the total number of objects seen, including unparsed.
	ObjectCount int64 `json:"object_count"`

	// UnparsedKeys counts objects whose key did not yield an app id. Any
	// nonzero value means foreign or corrupt keys are in the bucket and
	// should be investigated.
	UnparsedKeys int64 `json:"unparsed_keys"`

	GeneratedAt time.Time     `json:"generated_at"`
	Duration    time.Duration `json:"duration"`
}

// Auditor aggregates bucket contents per tenant.
type Auditor struct {
	lister ObjectLister
}

// NewAuditor creates an Auditor over the given lister.
func NewAuditor(lister ObjectLister) *Auditor {
	return &Auditor{lister: lister}
}

// Audit walks the whole bucket one page at a time and aggregates object
// sizes and counts per app id. Pages are folded into the accumulator as they
// arrive; nothing but the per-tenant totals is held across pages, so memory
// stays flat however large the bucket is.
//
// The listing can run long on large buckets. The context is checked before
// every page; cancel it or set a deadline to bound the walk.
func (a *Auditor) Audit(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{
		Apps:        make(map[string]AppUsage),
		GeneratedAt: start.UTC(),
	}

	var token string
	var pages int
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("usage audit canceled after %d pages: %w", pages, err)
		}

		page, err := a.lister.List(ctx, token)
		if err != nil {
			return nil, &filestore.Error{
				Code:    filestore.ErrCodeListFailed,
				Message: fmt.Sprintf("usage audit: list page %d", pages),
				Err:     err,
			}
		}
		pages++

		for _, obj := range page.Objects {
			report.ObjectCount++

			appID, err := storagekey.AppID(obj.Key)
			if err != nil {
				report.UnparsedKeys++
				log.Warn().Str("key", obj.Key).Msg("audit: unparsable object key")
				continue
			}

			u := report.Apps[appID]
			u.TotalBytes += obj.Size
			u.FileCount++
			report.Apps[appID] = u
		}

		if !page.Truncated {
			break
		}
		token = page.NextToken
	}

	report.Duration = time.Since(start)

	log.Info().
		Int("pages", pages).
		Int64("objects", report.ObjectCount).
		Int("apps", len(report.Apps)).
		Int64("unparsed", report.UnparsedKeys).
		Dur("took", report.Duration).
		Msg("usage audit complete")

	return report, nil
}
