package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAppliesHeaders(t *testing.T) {
	var seen http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.Write([]byte("#EXTM3U\n"))
	}))
	defer ts.Close()

	f, err := New(Configure().
		UserAgent("test-agent/1.0").
		Referer("https://example.com/roomx/").
		Cookies("sessionid=abc123").
		Header("X-Requested-With", "XMLHttpRequest"))
	require.NoError(t, err)

	body, err := f.Fetch(context.Background(), ts.URL+"/playlist.m3u8")
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n", string(body))

	assert.Equal(t, "test-agent/1.0", seen.Get("User-Agent"))
	assert.Equal(t, "https://example.com/roomx/", seen.Get("Referer"))
	assert.Equal(t, "sessionid=abc123", seen.Get("Cookie"))
	assert.Equal(t, "XMLHttpRequest", seen.Get("X-Requested-With"))
}

func TestFetchDefaultUserAgent(t *testing.T) {
	var ua string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
	}))
	defer ts.Close()

	f, err := New(Configure())
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Contains(t, ua, "Mozilla/5.0")
}

func TestFetchNotOK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "room not found", http.StatusNotFound)
	}))
	defer ts.Close()

	f, err := New(Configure())
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotOK))
	assert.Contains(t, err.Error(), "404")
}

func TestFetchContextCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	f, err := New(Configure())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, ts.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewInvalidProxy(t *testing.T) {
	_, err := New(Configure().Proxy("://not-a-url"))
	require.Error(t, err)
}
