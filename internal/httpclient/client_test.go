package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnik909-create/wechselmodell/internal/logger"
)

func TestPostJSON(t *testing.T) {
	var (
		gotPath   string
		gotAuth   string
		gotType   string
		gotFields map[string]string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotFields)
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	base, err := url.Parse(ts.URL + "/hooks/")
	require.NoError(t, err)
	httpClient := &http.Client{Transport: NewBearerAuthTransport("s3cret", nil, logger.Discard())}
	c, err := New(httpClient, *base, logger.Discard())
	require.NoError(t, err)

	require.NoError(t, c.PostJSON(context.Background(), "handover", map[string]string{"to": "parent_b"}))
	assert.Equal(t, "/hooks/handover", gotPath)
	assert.Equal(t, "Bearer s3cret", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, map[string]string{"to": "parent_b"}, gotFields)

	err = c.PostJSON(context.Background(), "/fail", map[string]string{})
	assert.ErrorContains(t, err, "502")
}

func TestNewRequiresLogger(t *testing.T) {
	_, err := New(nil, url.URL{}, nil)
	assert.Error(t, err)
}

func TestBearerAuthTransport_NoToken(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer ts.Close()

	client := &http.Client{Transport: NewBearerAuthTransport("", nil, nil)}
	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, gotAuth)
}
