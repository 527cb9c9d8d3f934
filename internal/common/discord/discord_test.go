package discord

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendLogMessage(t *testing.T) {
	var got WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.SendLogMessage("ERROR", "identification failed", map[string]interface{}{
		"trip_id":  "T9",
		"strategy": "route_short_name",
	})
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	assert.Equal(t, "diamant", got.Username)
	assert.Equal(t, "identification failed", embed.Description)
	assert.Equal(t, 0xFF0000, embed.Color)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "strategy", embed.Fields[0].Name)
	assert.Equal(t, "trip_id", embed.Fields[1].Name)
}

func TestSendMessageStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).SendMessage(WebhookMessage{Content: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSendMessageWithoutURL(t *testing.T) {
	assert.NoError(t, NewClient("").SendMessage(WebhookMessage{Content: "ignored"}))
}

func TestSendLogMessageTruncatesDescription(t *testing.T) {
	var got WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	long := strings.Repeat("x", maxDescriptionLen+10)
	require.NoError(t, NewClient(srv.URL).SendLogMessage("WARN", long, nil))
	require.Len(t, got.Embeds, 1)
	assert.Len(t, got.Embeds[0].Description, maxDescriptionLen)
	assert.Equal(t, 0xFFA500, got.Embeds[0].Color)
}
