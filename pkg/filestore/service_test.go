// Copyright 2025 Instant Authors
// SPDX-License-Identifier: Apache-2.0

package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayoung19/instant/pkg/storagekey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory ObjectStore. batchLimit mirrors the chunking a
// real client performs so bulk-delete tests can count underlying calls.
type fakeStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	batchLimit int
	batchCalls int

	failPut    map[string]error
	failDelete map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:    make(map[string][]byte),
		batchLimit: 1000,
		failPut:    make(map[string]error),
		failDelete: make(map[string]error),
	}
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, _ int64) error {
	if err := f.failPut[key]; err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if err := f.failDelete[key]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) DeleteBatch(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += f.batchLimit {
		end := min(start+f.batchLimit, len(keys))
		f.mu.Lock()
		f.batchCalls++
		for _, key := range keys[start:end] {
			delete(f.objects, key)
		}
		f.mu.Unlock()
	}
	return nil
}

func (f *fakeStore) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		// Real presigning does not check existence, but returning a URL for a
		// known key keeps assertions honest.
		return "", fmt.Errorf("presign: no object at %q", key)
	}
	return fmt.Sprintf("https://store.test/%s?expires=%d", key, int64(expiry.Seconds())), nil
}

func (f *fakeStore) get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	return data, ok
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func TestUpload_Migrating_DualWrite(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := NewService(store)

	content := []byte("png bytes")
	err := svc.Upload(context.Background(), UploadRequest{
		AppID:      "t1",
		Path:       "/a/b.png",
		LocationID: "loc1",
		Migrating:  true,
		Body:       strings.NewReader(string(content)),
	})
	require.NoError(t, err)

	pathKey := storagekey.PartitionedPathKey("t1", "/a/b.png")
	locKey := storagekey.LocationKey("t1", "loc1")

	got, ok := store.get(pathKey)
	require.True(t, ok, "path-addressed object missing")
	assert.Equal(t, content, got)

	got, ok = store.get(locKey)
	require.True(t, ok, "location-addressed object missing")
	assert.Equal(t, content, got)

	assert.Equal(t, 2, store.count())
}

func TestUpload_NotMigrating_SingleWrite(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := NewService(store)

	err := svc.Upload(context.Background(), UploadRequest{
		AppID:      "t1",
		Path:       "/a/b.png",
		LocationID: "loc1",
		Migrating:  false,
		Body:       strings.NewReader("data"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, store.count())
	_, ok := store.get(storagekey.LocationKey("t1", "loc1"))
	assert.True(t, ok)
}

func TestUpload_SecondWriteFails_LegacyCopyStays(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	locKey := storagekey.LocationKey("t1", "loc1")
	store.failPut[locKey] = errors.New("throttled")

	svc := NewService(store)
	err := svc.Upload(context.Background(), UploadRequest{
		AppID:      "t1",
		Path:       "/a/b.png",
		LocationID: "loc1",
		Migrating:  true,
		Body:       strings.NewReader("data"),
	})

	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, ErrCodeWriteFailed, opErr.Code)
	assert.Equal(t, "location", opErr.Scheme)
	assert.Equal(t, locKey, opErr.Key)
	assert.True(t, opErr.IsRetryable())

	// Known narrow race of the dual write: the first write is not rolled
	// back, leaving the schemes transiently inconsistent until a retry.
	_, ok := store.get(storagekey.PartitionedPathKey("t1", "/a/b.png"))
	assert.True(t, ok, "path-addressed copy should remain after partial failure")
}

func TestUpload_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore())
	ctx := context.Background()

	err := svc.Upload(ctx, UploadRequest{Path: "/p", LocationID: "l", Body: strings.NewReader("")})
	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, ErrCodeValidation, opErr.Code)
	assert.False(t, opErr.IsRetryable())

	err = svc.Upload(ctx, UploadRequest{AppID: "t1", Path: "/p", Body: strings.NewReader("")})
	assert.ErrorAs(t, err, &opErr)

	// Path may be empty only when not migrating.
	err = svc.Upload(ctx, UploadRequest{AppID: "t1", LocationID: "l", Migrating: true, Body: strings.NewReader("")})
	assert.ErrorAs(t, err, &opErr)

	err = svc.Upload(ctx, UploadRequest{AppID: "t1", LocationID: "l", Migrating: false, Body: strings.NewReader("ok")})
	assert.NoError(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("stream reset")
}

func TestUpload_UnreadableBody(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := NewService(store)

	err := svc.Upload(context.Background(), UploadRequest{
		AppID:      "t1",
		LocationID: "loc1",
		Body:       failingReader{},
	})
	assert.ErrorIs(t, err, ErrUnsupportedInput)

	// Nothing may be written when the body cannot be materialized.
	assert.Equal(t, 0, store.count())
}

func TestDelete_Migrating_RemovesBoth(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	require.NoError(t, svc.Upload(ctx, UploadRequest{
		AppID: "t1", Path: "/a/b.png", LocationID: "loc1", Migrating: true,
		Body: strings.NewReader("data"),
	}))
	require.Equal(t, 2, store.count())

	require.NoError(t, svc.Delete(ctx, DeleteRequest{
		AppID: "t1", Path: "/a/b.png", LocationID: "loc1", Migrating: true,
	}))

	assert.Equal(t, 0, store.count())
}

func TestDelete_FirstDeleteFails_Tagged(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pathKey := storagekey.PartitionedPathKey("t1", "/a/b.png")
	store.failDelete[pathKey] = errors.New("503")

	svc := NewService(store)
	err := svc.Delete(context.Background(), DeleteRequest{
		AppID: "t1", Path: "/a/b.png", LocationID: "loc1", Migrating: true,
	})

	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, ErrCodeDeleteFailed, opErr.Code)
	assert.Equal(t, "path", opErr.Scheme)
	assert.Equal(t, pathKey, opErr.Key)
}

func TestDeleteAll_ChunksBatches(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.batchLimit = 10
	svc := NewService(store)
	ctx := context.Background()

	ids := make([]string, 25)
	for i := range ids {
		ids[i] = fmt.Sprintf("loc-%02d", i)
		require.NoError(t, svc.Upload(ctx, UploadRequest{
			AppID: "t1", LocationID: ids[i], Body: strings.NewReader("x"),
		}))
	}
	require.Equal(t, 25, store.count())

	require.NoError(t, svc.DeleteAll(ctx, BulkDeleteRequest{
		AppID:       "t1",
		LocationIDs: ids,
	}))

	assert.Equal(t, 0, store.count())
	assert.Equal(t, 3, store.batchCalls, "25 keys at batch limit 10 should take 3 calls")
}

func TestDeleteAll_Migrating_BothSchemes(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	require.NoError(t, svc.Upload(ctx, UploadRequest{
		AppID: "t1", Path: "/a.txt", LocationID: "locA", Migrating: true,
		Body: strings.NewReader("a"),
	}))
	require.NoError(t, svc.Upload(ctx, UploadRequest{
		AppID: "t1", Path: "/b.txt", LocationID: "locB", Migrating: true,
		Body: strings.NewReader("b"),
	}))
	require.Equal(t, 4, store.count())

	require.NoError(t, svc.DeleteAll(ctx, BulkDeleteRequest{
		AppID:       "t1",
		Paths:       []string{"/a.txt", "/b.txt"},
		LocationIDs: []string{"locA", "locB"},
		Migrating:   true,
	}))

	assert.Equal(t, 0, store.count())
}

func TestSignedURL_SchemePreference(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	require.NoError(t, svc.Upload(ctx, UploadRequest{
		AppID: "t1", Path: "/a/b.png", LocationID: "loc1", Migrating: true,
		Body: strings.NewReader("data"),
	}))

	// Migrating: reads stay on the path-addressed key.
	url, err := svc.SignedURL(ctx, URLRequest{
		AppID: "t1", Path: "/a/b.png", LocationID: "loc1", Migrating: true,
	})
	require.NoError(t, err)
	assert.Contains(t, url, storagekey.PartitionedPathKey("t1", "/a/b.png"))

	// Migration over: reads move to the location key.
	url, err = svc.SignedURL(ctx, URLRequest{
		AppID: "t1", Path: "/a/b.png", LocationID: "loc1", Migrating: false,
	})
	require.NoError(t, err)
	assert.Contains(t, url, storagekey.LocationKey("t1", "loc1"))

	// Fresh URL each call, same validity window.
	again, err := svc.SignedURL(ctx, URLRequest{
		AppID: "t1", LocationID: "loc1",
	})
	require.NoError(t, err)
	assert.Contains(t, again, fmt.Sprintf("expires=%d", int64(URLExpiry.Seconds())))
}

func TestSignedURL_NoReadableObject(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore())

	url, err := svc.SignedURL(context.Background(), URLRequest{
		AppID: "t1", Path: "/a/b.png", Migrating: false,
	})
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestReadKey(t *testing.T) {
	t.Parallel()

	// Migrating with a path: path-addressed key wins.
	key, ok := ReadKey("t1", "/a.png", "loc1", true)
	assert.True(t, ok)
	assert.Equal(t, storagekey.PartitionedPathKey("t1", "/a.png"), key)

	// Migrating but no path recorded: fall through to the location key.
	key, ok = ReadKey("t1", "", "loc1", true)
	assert.True(t, ok)
	assert.Equal(t, storagekey.LocationKey("t1", "loc1"), key)

	// Nothing readable.
	_, ok = ReadKey("t1", "/a.png", "", false)
	assert.False(t, ok)
}

func TestNewLocationID(t *testing.T) {
	t.Parallel()

	a, b := NewLocationID(), NewLocationID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
