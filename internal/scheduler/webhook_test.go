package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
	"github.com/melnik909-create/wechselmodell/internal/logger"
)

func TestWebhookNotifier(t *testing.T) {
	var (
		got  handoverPayload
		auth string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/reminders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	names := map[custody.Parent]string{custody.ParentA: "Anna"}
	n, err := NewWebhookNotifier(ts.URL+"/reminders", "hook-token", names, logger.Discard())
	require.NoError(t, err)

	familyID := uuid.New()
	err = n.NotifyHandover(context.Background(), familyID, custody.Handover{
		Date: dateutil.Date(2024, 1, 8), From: custody.ParentA, To: custody.ParentB, IsException: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer hook-token", auth)
	assert.Equal(t, handoverPayload{
		FamilyID:    familyID.String(),
		Date:        "2024-01-08",
		From:        "parent_a",
		FromName:    "Anna",
		To:          "parent_b",
		ToName:      "parent_b",
		IsException: true,
	}, got)
}

func TestWebhookNotifier_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	n, err := NewWebhookNotifier(ts.URL, "", nil, logger.Discard())
	require.NoError(t, err)
	err = n.NotifyHandover(context.Background(), uuid.New(), custody.Handover{Date: dateutil.Date(2024, 1, 8)})
	assert.Error(t, err)
}

func TestNewWebhookNotifier_InvalidURL(t *testing.T) {
	for _, endpoint := range []string{"ftp://example.com/hook", "not a url", ""} {
		_, err := NewWebhookNotifier(endpoint, "", nil, logger.Discard())
		assert.Error(t, err, endpoint)
	}
}

func TestMultiNotifier(t *testing.T) {
	first := &recordingNotifier{err: errors.New("offline")}
	second := &recordingNotifier{}
	familyID := uuid.New()

	err := MultiNotifier{first, second}.NotifyHandover(context.Background(), familyID, custody.Handover{Date: dateutil.Date(2024, 1, 8)})
	assert.EqualError(t, err, "offline")
	assert.Len(t, second.calls[familyID], 1)
}
