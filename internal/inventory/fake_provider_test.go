package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vietdv277/bucketinv/pkg/provider"
	"github.com/vietdv277/bucketinv/pkg/types"
)

var errInjected = errors.New("injected provider failure")

var fakeModified = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeListing is a deterministic bucket of n objects named obj-0000..
type fakeListing struct {
	n           int
	pageSize    int // caps records per page below maxKeys when > 0
	failOnCall  int // 1-based ListPage call that returns errInjected
	panicOnCall int
	overflow    bool
	calls       int
	requests    []fakeRequest
}

type fakeRequest struct {
	token   string
	maxKeys int32
}

type fakeProvider struct {
	mu       sync.Mutex
	buckets  map[string]*fakeListing
	order    []string
	listErr  error
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{buckets: make(map[string]*fakeListing)}
}

func (f *fakeProvider) add(name string, l *fakeListing) *fakeProvider {
	f.buckets[name] = l
	f.order = append(f.order, name)
	return f
}

func (f *fakeProvider) listing(name string) *fakeListing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[name]
}

func (f *fakeProvider) ListBuckets(ctx context.Context) ([]types.Bucket, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]types.Bucket, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, types.Bucket{Name: name, Provider: "fake"})
	}
	return out, nil
}

func (f *fakeProvider) ListPage(ctx context.Context, bucket, token string, maxKeys int32) (*types.ListingPage, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if cur <= peak || f.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.buckets[bucket]
	if !ok {
		return nil, provider.ErrNotFound
	}

	l.calls++
	l.requests = append(l.requests, fakeRequest{token: token, maxKeys: maxKeys})
	if l.calls == l.failOnCall {
		return nil, errInjected
	}
	if l.calls == l.panicOnCall {
		panic("listing exploded")
	}

	start := 0
	if token != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(token, "tok-"))
		if err != nil {
			return nil, fmt.Errorf("bad token %q", token)
		}
		start = n
	}

	limit := int(maxKeys)
	if l.pageSize > 0 && l.pageSize < limit {
		limit = l.pageSize
	}
	if l.overflow {
		limit++
	}

	end := start + limit
	if end > l.n {
		end = l.n
	}

	page := &types.ListingPage{}
	for i := start; i < end; i++ {
		page.Records = append(page.Records, types.ObjectRecord{
			Bucket:       bucket,
			Key:          objKey(i),
			LastModified: fakeModified,
			Size:         int64(i),
		})
	}
	if end < l.n {
		page.Truncated = true
		page.NextToken = fmt.Sprintf("tok-%d", end)
	}
	return page, nil
}

func objKey(i int) string {
	return fmt.Sprintf("obj-%04d", i)
}

func objKeys(from, to int) []string {
	keys := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		keys = append(keys, objKey(i))
	}
	return keys
}
