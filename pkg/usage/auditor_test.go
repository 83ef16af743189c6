// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/ayoung19/instant/pkg/filestore"
	"github.com/ayoung19/instant/pkg/s3client"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLister pages a fixed object set with a configurable page size, so
// tests can prove aggregation is independent of page boundaries.
type fakeLister struct {
	objects  []s3client.ObjectSummary
	pageSize int
	err      error
}

func (f *fakeLister) List(_ context.Context, token string) (*s3client.ListPage, error) {
	if f.err != nil {
		return nil, f.err
	}

	start := 0
	if token != "" {
		var err error
		start, err = strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("bad token %q", token)
		}
	}

	end := min(start+f.pageSize, len(f.objects))
	page := &s3client.ListPage{
		Objects:   f.objects[start:end],
		Truncated: end < len(f.objects),
	}
	if page.Truncated {
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

func testObjects() []s3client.ObjectSummary {
	return []s3client.ObjectSummary{
		{Key: "t1/0/locA", Size: 100},
		{Key: "t1/3/locB", Size: 50},
		{Key: "t2/1/locC", Size: 10},
	}
}

func TestAudit_Aggregates(t *testing.T) {
	t.Parallel()

	auditor := NewAuditor(&fakeLister{objects: testObjects(), pageSize: 1000})

	report, err := auditor.Audit(context.Background())
	require.NoError(t, err)

	want := map[string]AppUsage{
		"t1": {TotalBytes: 150, FileCount: 2},
		"t2": {TotalBytes: 10, FileCount: 1},
	}
	if diff := cmp.Diff(want, report.Apps); diff != "" {
		t.Errorf("Apps mismatch (-want +got):\n%s", diff)
	}
	assert.EqualValues(t, 3, report.ObjectCount)
	assert.Zero(t, report.UnparsedKeys)
}

func TestAudit_PageBoundariesIrrelevant(t *testing.T) {
	t.Parallel()

	want := map[string]AppUsage{
		"t1": {TotalBytes: 150, FileCount: 2},
		"t2": {TotalBytes: 10, FileCount: 1},
	}

	for _, pageSize := range []int{1, 2, 3, 7} {
		auditor := NewAuditor(&fakeLister{objects: testObjects(), pageSize: pageSize})

		report, err := auditor.Audit(context.Background())
		require.NoError(t, err, "pageSize=%d", pageSize)
		if diff := cmp.Diff(want, report.Apps); diff != "" {
			t.Errorf("pageSize=%d mismatch (-want +got):\n%s", pageSize, diff)
		}
	}
}

func TestAudit_UnparsedKeysCounted(t *testing.T) {
	t.Parallel()

	objects := append(testObjects(), s3client.ObjectSummary{Key: "no-slash-at-all", Size: 999})
	auditor := NewAuditor(&fakeLister{objects: objects, pageSize: 2})

	report, err := auditor.Audit(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, report.UnparsedKeys)
	assert.EqualValues(t, 4, report.ObjectCount)
	// The bad key contributes to no tenant.
	assert.Len(t, report.Apps, 2)
}

func TestAudit_EmptyBucket(t *testing.T) {
	t.Parallel()

	auditor := NewAuditor(&fakeLister{pageSize: 100})

	report, err := auditor.Audit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Apps)
	assert.Zero(t, report.ObjectCount)
}

func TestAudit_ListFailure(t *testing.T) {
	t.Parallel()

	auditor := NewAuditor(&fakeLister{err: errors.New("slow down")})

	_, err := auditor.Audit(context.Background())
	require.Error(t, err)

	var ferr *filestore.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, filestore.ErrCodeListFailed, ferr.Code)
	assert.True(t, ferr.IsRetryable())
}

func TestAudit_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	auditor := NewAuditor(&fakeLister{objects: testObjects(), pageSize: 1})

	_, err := auditor.Audit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
