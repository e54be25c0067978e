package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/moviebot/internal/domain"
)

type pageServer struct {
	mu       sync.Mutex
	queries  []string
	headers  []http.Header
	failPage map[int]int    // page -> status
	rawPage  map[int]string // page -> 原样返回的 body
}

func (s *pageServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.queries = append(s.queries, r.URL.RawQuery)
	s.headers = append(s.headers, r.Header.Clone())
	s.mu.Unlock()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if code, ok := s.failPage[page]; ok {
		w.WriteHeader(code)
		return
	}
	if body, ok := s.rawPage[page]; ok {
		_, _ = w.Write([]byte(body))
		return
	}
	genres := r.URL.Query().Get("with_genres")
	fmt.Fprintf(w, `{"page":%d,"results":[{"title":"p%d-a","original_language":"en","vote_average":7,"genre":%q},{"title":"p%d-b","original_language":"hi","vote_average":"8.5"}]}`,
		page, page, genres, page)
}

func newDiscovery(t *testing.T, srv *httptest.Server, cfg Config) *Discovery {
	t.Helper()
	cfg.BaseURL = srv.URL + "/discover/movie?sort_by=popularity.desc"
	cfg.APIKey = "k"
	cfg.APIHost = "movies.example"
	d, err := NewDiscovery(cfg, srv.Client(), nil)
	require.NoError(t, err)
	return d
}

func movieTitles(ms []domain.Movie) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Title)
	}
	return out
}

func TestDiscover_PagesInOrderWithHeadersAndGenres(t *testing.T) {
	ps := &pageServer{}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	d := newDiscovery(t, srv, Config{Pages: 3})
	res, err := d.Discover(context.Background(), "27,10749")
	require.NoError(t, err)

	assert.Equal(t, []string{"p1-a", "p1-b", "p2-a", "p2-b", "p3-a", "p3-b"}, movieTitles(res.Movies))
	require.Len(t, ps.queries, 3)
	for i, raw := range ps.queries {
		q, _ := url.ParseQuery(raw)
		assert.Equal(t, strconv.Itoa(i+1), q.Get("page"))
		assert.Equal(t, "27,10749", q.Get("with_genres"))
		assert.Equal(t, "popularity.desc", q.Get("sort_by"), "base url 自带的参数应保留")
		assert.Equal(t, "k", ps.headers[i].Get("x-rapidapi-key"))
		assert.Equal(t, "movies.example", ps.headers[i].Get("x-rapidapi-host"))
	}
	assert.Equal(t, 0, res.FailedPages())
}

func TestDiscover_EmptyGenreOmitsParam(t *testing.T) {
	ps := &pageServer{}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	d := newDiscovery(t, srv, Config{Pages: 1})
	_, err := d.Discover(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, ps.queries, 1)
	q, _ := url.ParseQuery(ps.queries[0])
	_, present := q["with_genres"]
	assert.False(t, present, "genre 为空时不应携带 with_genres")
}

func TestDiscover_SkipsFailedAndMalformedPages(t *testing.T) {
	ps := &pageServer{
		failPage: map[int]int{2: http.StatusTooManyRequests, 4: http.StatusInternalServerError},
		rawPage:  map[int]string{3: `{"message":"quota"}`, 5: `not json`},
	}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	d := newDiscovery(t, srv, Config{Pages: 5})
	res, err := d.Discover(context.Background(), "28")
	require.NoError(t, err)

	assert.Equal(t, []string{"p1-a", "p1-b"}, movieTitles(res.Movies))
	require.Len(t, res.Attempts, 5)
	assert.Equal(t, 4, res.FailedPages())

	var hs *HTTPStatusError
	require.True(t, errors.As(res.Attempts[1].Err, &hs))
	assert.Equal(t, http.StatusTooManyRequests, hs.StatusCode)

	var se *ShapeError
	assert.True(t, errors.As(res.Attempts[2].Err, &se))
	assert.True(t, errors.As(res.Attempts[4].Err, &se))
}

func TestDiscover_AllPagesFailIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := newDiscovery(t, srv, Config{Pages: 2})
	res, err := d.Discover(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, res.Movies)
	assert.Equal(t, 2, res.FailedPages())
}

func TestDiscover_TransportErrorSkipsPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close() // 连接被拒绝

	d, err := NewDiscovery(Config{BaseURL: base, Pages: 2}, nil, nil)
	require.NoError(t, err)

	res, err := d.Discover(context.Background(), "27")
	require.NoError(t, err, "网络错误不应中断整个抓取")
	assert.Empty(t, res.Movies)
	assert.Equal(t, 2, res.FailedPages())
}

func TestDiscover_ConcurrentKeepsPageOrder(t *testing.T) {
	ps := &pageServer{failPage: map[int]int{3: http.StatusBadGateway}}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	seq := newDiscovery(t, srv, Config{Pages: 6})
	par := newDiscovery(t, srv, Config{Pages: 6, Concurrency: 4})

	a, err := seq.Discover(context.Background(), "35")
	require.NoError(t, err)
	b, err := par.Discover(context.Background(), "35")
	require.NoError(t, err)

	assert.Equal(t, movieTitles(a.Movies), movieTitles(b.Movies))
	require.Len(t, b.Attempts, 6)
	for i, at := range b.Attempts {
		assert.Equal(t, i+1, at.Page)
	}
}

func TestDiscover_CanceledContext(t *testing.T) {
	ps := &pageServer{}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newDiscovery(t, srv, Config{Pages: 3})
	res, err := d.Discover(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Movies)
	assert.Empty(t, ps.queries)
}

func TestDiscover_RatingsDecodedFromMixedTypes(t *testing.T) {
	ps := &pageServer{}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	d := newDiscovery(t, srv, Config{Pages: 1})
	res, err := d.Discover(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, res.Movies, 2)

	s, ok := res.Movies[0].Score()
	assert.True(t, ok)
	assert.Equal(t, 7.0, s)
	s, ok = res.Movies[1].Score()
	assert.True(t, ok)
	assert.Equal(t, 8.5, s)
}

func TestDiscover_OddlyTypedMovieKeepsRestOfPage(t *testing.T) {
	ps := &pageServer{rawPage: map[int]string{
		1: `{"results":[
			{"id":603,"title":"Good","original_language":"en","release_date":"1999-03-31","vote_average":8.1},
			{"id":"tt0111161","title":"Odd","original_language":"en","overview":{"en":"x"},"imdbRating":"9.3"},
			"junk"
		]}`,
	}}
	srv := httptest.NewServer(ps)
	defer srv.Close()

	d := newDiscovery(t, srv, Config{Pages: 1})
	res, err := d.Discover(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 0, res.FailedPages(), "单条影片类型异常不应导致整页失败")
	assert.Equal(t, []string{"Good", "Odd"}, movieTitles(res.Movies))
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, 2, res.Attempts[0].Count)

	s, ok := res.Movies[1].Score()
	assert.True(t, ok)
	assert.Equal(t, 9.3, s)
}

func TestNewDiscovery_RejectsBadBaseURL(t *testing.T) {
	_, err := NewDiscovery(Config{BaseURL: "ftp://x"}, nil, nil)
	assert.Error(t, err)
	_, err = NewDiscovery(Config{BaseURL: ""}, nil, nil)
	assert.Error(t, err)
}
