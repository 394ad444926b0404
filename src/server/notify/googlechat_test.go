package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChat(url string) *GoogleChat {
	g := NewGoogleChat(url)
	g.delay = time.Millisecond
	return g
}

func TestGoogleChat_Post(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.True(t, newTestChat(srv.URL).Post(context.Background(), "Hi Ann"))
	assert.Equal(t, map[string]string{"text": "Hi Ann"}, body)
}

func TestGoogleChat_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.True(t, newTestChat(srv.URL).Post(context.Background(), "hello"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGoogleChat_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	assert.False(t, newTestChat(srv.URL).Post(context.Background(), "hello"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGoogleChat_Disabled(t *testing.T) {
	g := NewGoogleChat("")
	assert.False(t, g.Enabled())
	assert.False(t, g.Post(context.Background(), "hello"))

	var nilChat *GoogleChat
	assert.False(t, nilChat.Post(context.Background(), "hello"))
}
