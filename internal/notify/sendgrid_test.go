package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGridClient_Send(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewSendGridClient(srv.URL, "SG.test-key", "no-reply@craftlink.app", 5*time.Second)
	err := c.Send(context.Background(), "You have a new job request", "artisan@example.com", "New Job Request")
	require.NoError(t, err)

	assert.Equal(t, "/v3/mail/send", gotPath)
	assert.Equal(t, "Bearer SG.test-key", gotAuth)
	assert.Equal(t, "no-reply@craftlink.app", gotPayload.From.Email)
	assert.Equal(t, "New Job Request", gotPayload.Subject)
	require.Len(t, gotPayload.Personalizations, 1)
	require.Len(t, gotPayload.Personalizations[0].To, 1)
	assert.Equal(t, "artisan@example.com", gotPayload.Personalizations[0].To[0].Email)
	require.Len(t, gotPayload.Content, 1)
	assert.Equal(t, "text/plain", gotPayload.Content[0].Type)
	assert.Equal(t, "You have a new job request", gotPayload.Content[0].Value)
}

func TestSendGridClient_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewSendGridClient(srv.URL, "bad-key", "no-reply@craftlink.app", 5*time.Second)
	err := c.Send(context.Background(), "msg", "to@example.com", "subject")
	assert.ErrorIs(t, err, ErrMailRejected)
}

func TestSendGridClient_Unreachable(t *testing.T) {
	// Nothing listens on this port.
	c := NewSendGridClient("http://127.0.0.1:1", "key", "no-reply@craftlink.app", time.Second)
	err := c.Send(context.Background(), "msg", "to@example.com", "subject")
	assert.ErrorIs(t, err, ErrMailUnreachable)
}

func TestSendGridClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewSendGridClient(srv.URL, "key", "no-reply@craftlink.app", 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Send(ctx, "msg", "to@example.com", "subject")
	assert.ErrorIs(t, err, ErrMailTimeout)
}

func TestLogNotifier_Send(t *testing.T) {
	err := LogNotifier{}.Send(context.Background(), "msg", "to@example.com", "subject")
	assert.NoError(t, err)
}
