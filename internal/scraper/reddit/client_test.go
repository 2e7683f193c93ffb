package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/metrics"
)

func testConfig(baseURL string) config.ScraperConfig {
	return config.ScraperConfig{
		BaseURL:        baseURL,
		UserAgent:      "forum-corpus-test/1.0",
		RequestTimeout: 2 * time.Second,
	}
}

func submissionJSON(id, author string, created int) string {
	return fmt.Sprintf(`{"kind":"t3","data":{"id":%q,"title":"T %s","author":%q,"created_utc":%d.0,"score":3,"num_comments":2,"selftext":"body %s"}}`,
		id, id, author, created, id)
}

func TestHotSubmissionsFollowsPagination(t *testing.T) {
	var agents atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents.Store(r.Header.Get("User-Agent"))
		assert.Equal(t, "/r/IAmA/hot.json", r.URL.Path)
		switch r.URL.Query().Get("after") {
		case "":
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			fmt.Fprintf(w, `{"kind":"Listing","data":{"after":"t3_b","children":[%s,%s]}}`,
				submissionJSON("a", "alice", 100), submissionJSON("b", "[deleted]", 90))
		case "t3_b":
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			fmt.Fprintf(w, `{"kind":"Listing","data":{"after":null,"children":[%s]}}`,
				submissionJSON("c", "carol", 80))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("after"))
		}
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	subs, err := c.HotSubmissions(context.Background(), "IAmA", 3)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "a", subs[0].ID)
	assert.Equal(t, int64(100), subs[0].CreatedUTC)
	assert.Equal(t, "body a", subs[0].Text)
	assert.Equal(t, "", subs[1].Author)
	assert.Equal(t, "c", subs[2].ID)
	assert.Equal(t, "forum-corpus-test/1.0", agents.Load())
}

func TestHotSubmissionsRequestsAtMostOnePageSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"kind":"Listing","data":{"after":null,"children":[]}}`)
	}))
	defer srv.Close()

	subs, err := NewClient(testConfig(srv.URL)).HotSubmissions(context.Background(), "IAmA", 250)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

const commentResponse = `[
 {"kind":"Listing","data":{"children":[]}},
 {"kind":"Listing","data":{"children":[
  {"kind":"t1","data":{"id":"c1","author":"bob","created_utc":110,"score":4,"body":"top","parent_id":"t3_s1",
   "replies":{"kind":"Listing","data":{"children":[
     {"kind":"t1","data":{"id":"c2","author":"[deleted]","created_utc":120,"score":0,"body":"[removed]","parent_id":"t1_c1",
      "replies":{"kind":"Listing","data":{"children":[
        {"kind":"t1","data":{"id":"c3","author":"carol","created_utc":130,"score":1,"body":"orphan","parent_id":"t1_c2","replies":""}}
      ]}}}},
     {"kind":"t1","data":{"id":"c4","author":"alice","created_utc":140,"score":2,"body":"reply","parent_id":"t1_c1","replies":""}}
   ]}}}},
  {"kind":"more","data":{"id":"m1","children":["x","y"]}},
  {"kind":"t1","data":{"id":"c5","author":"dave","created_utc":150,"score":1,"body":"second","parent_id":"t3_s1","replies":""}}
 ]}}
]`

func TestCommentTreeDecodesNesting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comments/s1.json", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		fmt.Fprint(w, commentResponse)
	}))
	defer srv.Close()

	roots, err := NewClient(testConfig(srv.URL)).CommentTree(context.Background(), "s1", 50)
	require.NoError(t, err)
	require.Len(t, roots, 2)

	c1 := roots[0]
	assert.Equal(t, "c1", c1.ID)
	assert.Equal(t, "s1", c1.ParentID)
	assert.Equal(t, "s1", c1.SubmissionID)
	require.Len(t, c1.Children, 2)
	assert.True(t, c1.Children[0].Deleted())
	assert.Equal(t, "c1", c1.Children[0].ParentID)
	require.Len(t, c1.Children[0].Children, 1)
	assert.Equal(t, "c3", c1.Children[0].Children[0].ID)
	assert.Equal(t, "c4", c1.Children[1].ID)
	assert.Equal(t, 2, c1.Comment().NumReplies)
	assert.Equal(t, "c5", roots[1].ID)
}

func TestFetchClassifiesStatuses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
		notFound  bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, transient: true},
		{name: "server error", status: http.StatusBadGateway, transient: true},
		{name: "not found", status: http.StatusNotFound, notFound: true},
		{name: "forbidden", status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewClient(testConfig(srv.URL)).CommentTree(context.Background(), "s1", 0)
			require.Error(t, err)
			assert.Equal(t, tt.transient, apperrors.IsTransient(err))
			assert.Equal(t, tt.notFound, errors.Is(err, apperrors.ErrNotFound))
		})
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewClient(testConfig(addr)).HotSubmissions(context.Background(), "IAmA", 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}

func TestMalformedBodyIsMalformedRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"kind":`)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).HotSubmissions(context.Background(), "IAmA", 1)
	assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
}

type countingCache struct {
	store map[string][]byte
	hits  int
}

func (c *countingCache) GetOrFetch(_ context.Context, request string, fetch func() ([]byte, error)) ([]byte, bool, error) {
	if b, ok := c.store[request]; ok {
		c.hits++
		return b, true, nil
	}
	b, err := fetch()
	if err != nil {
		return nil, false, err
	}
	c.store[request] = b
	return b, false, nil
}

func TestClientUsesCacheAndMetrics(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, strings.TrimSpace(commentResponse))
	}))
	defer srv.Close()

	m := metrics.New(prometheus.NewRegistry())
	cache := &countingCache{store: make(map[string][]byte)}
	c := NewClient(testConfig(srv.URL), WithCache(cache), WithMetrics(m))

	for i := 0; i < 3; i++ {
		roots, err := c.CommentTree(context.Background(), "s1", 10)
		require.NoError(t, err)
		require.Len(t, roots, 2)
	}
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, 2, cache.hits)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchRequestsTotal.WithLabelValues("comments", "ok")))
}

type countingLimiter struct {
	waits int
}

func (l *countingLimiter) Wait(context.Context) error {
	l.waits++
	return nil
}

func TestRateLimiterGuardsUncachedRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, commentResponse)
	}))
	defer srv.Close()

	limiter := &countingLimiter{}
	cache := &countingCache{store: make(map[string][]byte)}
	c := NewClient(testConfig(srv.URL), WithCache(cache), WithRateLimiter(limiter))
	for i := 0; i < 2; i++ {
		_, err := c.CommentTree(context.Background(), "s1", 10)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, limiter.waits)
}

type cancelledLimiter struct{}

func (cancelledLimiter) Wait(context.Context) error { return context.Canceled }

func TestRateLimiterCancellationAbortsFetch(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), WithRateLimiter(cancelledLimiter{})).HotSubmissions(context.Background(), "IAmA", 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, requests.Load())
}

func TestPerMinute(t *testing.T) {
	assert.Nil(t, PerMinute(0))
	assert.Nil(t, PerMinute(-5))

	l := PerMinute(30)
	require.NotNil(t, l)
	assert.Equal(t, rate.Limit(0.5), l.Limit())
	assert.Equal(t, 30, l.Burst())
}

func TestRateLimiterBlocksOnceBurstIsSpent(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, commentResponse)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), WithRateLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))
	_, err := c.CommentTree(context.Background(), "s1", 10)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.CommentTree(ctx, "s1", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waiting for rate limit")
	assert.Equal(t, int32(1), requests.Load())
}
