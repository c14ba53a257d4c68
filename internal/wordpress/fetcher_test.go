package wordpress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ashureev/wpassist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wpJSON(kind string, ids ...int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf(`{"id":%d,"title":{"rendered":"Title %d"},"excerpt":{"rendered":"<p>Excerpt %d</p>"},"link":"https://example.com/%d","type":%q,"date":"2024-03-01T10:20:30"}`, id, id, id, id, kind))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func newSite(t *testing.T, posts, pages string, pagesStatus int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("per_page") != "20" {
			http.Error(w, "bad per_page", http.StatusBadRequest)
			return
		}
		switch r.URL.Path {
		case "/wp-json/wp/v2/posts":
			_, _ = w.Write([]byte(posts))
		case "/wp-json/wp/v2/pages":
			if pagesStatus != 0 {
				w.WriteHeader(pagesStatus)
				return
			}
			_, _ = w.Write([]byte(pages))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetch_MergesPostsThenPages(t *testing.T) {
	srv, hits := newSite(t, wpJSON("post", 3, 1, 2), wpJSON("page", 10, 11), 0)

	items, err := NewFetcher(srv.Client(), nil).Fetch(context.Background(), srv.URL+"///")
	require.NoError(t, err)
	require.Len(t, items, 5)

	var ids []int64
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []int64{3, 1, 2, 10, 11}, ids)
	assert.Equal(t, domain.KindPost, items[0].Kind)
	assert.Equal(t, domain.KindPage, items[4].Kind)
	assert.Equal(t, "<p>Excerpt 3</p>", items[0].RenderedExcerpt)
	assert.Equal(t, 2024, items[0].PublishedAt.Year())
	assert.EqualValues(t, 2, hits.Load())
}

func TestFetch_EmptyPages(t *testing.T) {
	srv, _ := newSite(t, wpJSON("post", 1, 2, 3), "[]", 0)

	items, err := NewFetcher(srv.Client(), nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestFetch_NotFoundFailsAtomically(t *testing.T) {
	srv, _ := newSite(t, wpJSON("post", 1), "", http.StatusNotFound)

	items, err := NewFetcher(srv.Client(), nil).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Nil(t, items)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestFetch_MalformedBody(t *testing.T) {
	srv, _ := newSite(t, `{"code":"rest_no_route"}`, "[]", 0)

	_, err := NewFetcher(srv.Client(), nil).Fetch(context.Background(), srv.URL)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestFetch_NullBody(t *testing.T) {
	srv, _ := newSite(t, `null`, "[]", 0)

	_, err := NewFetcher(srv.Client(), nil).Fetch(context.Background(), srv.URL)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestFetch_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewFetcher(nil, nil).Fetch(context.Background(), addr)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestFetch_MissingTypeUsesCollectionKind(t *testing.T) {
	srv, _ := newSite(t, "[]", `[{"id":5,"title":{"rendered":"About"},"excerpt":{"rendered":""},"link":"https://example.com/about","date":"not a date"}]`, 0)

	items, err := NewFetcher(srv.Client(), nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.KindPage, items[0].Kind)
	assert.True(t, items[0].PublishedAt.IsZero())
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "https://example.com/", want: "https://example.com"},
		{in: "https://example.com/blog//", want: "https://example.com/blog"},
		{in: "  http://example.com  ", want: "http://example.com"},
		{in: "example.com", wantErr: true},
		{in: "ftp://example.com", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestFetch_InvalidURLIsConnectionError(t *testing.T) {
	_, err := NewFetcher(nil, nil).Fetch(context.Background(), "not a url")
	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
}
