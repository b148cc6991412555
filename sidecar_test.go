package livetable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSidecar answers every request frame with the frames in replies.
type fakeSidecar struct {
	replies []string

	mu       sync.Mutex
	requests []sidecarMessage
	conns    int
}

func (s *fakeSidecar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()
	s.mu.Lock()
	s.conns++
	s.mu.Unlock()

	for {
		var msg sidecarMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, msg)
		s.mu.Unlock()
		for _, reply := range s.replies {
			if err := ws.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}
}

func (s *fakeSidecar) snapshot() ([]sidecarMessage, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sidecarMessage(nil), s.requests...), s.conns
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestSidecarChannel(t *testing.T) {
	sidecar := &fakeSidecar{replies: []string{
		`{"category": "nodes", "action": "info", "message": [{"id": 1, "cmc_on_off": "on"}]}`,
		`{"category": "nodes", "action": "info", "message": "[{\"id\": 2, \"control_ping\": \"off\"}]"}`,
		`{"category": "nodes", "action": "request", "message": "PLEASE"}`,
		`{"category": "leases", "action": "info", "message": []}`,
		`not json`,
	}}
	server := httptest.NewServer(sidecar)
	defer server.Close()

	var mu sync.Mutex
	var got []Batch
	c := NewSidecarChannel(wsURL(server), &SidecarSettings{
		ReconnectTimeout: 50 * time.Millisecond,
		HandshakeTimeout: time.Second,
		WriteTimeout:     time.Second,
	})
	c.RegisterCategories("nodes")
	c.RegisterCallback("nodes", func(b Batch) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, b)
	})

	require.NoError(t, c.Open(context.Background()))
	assert.ErrorIs(t, c.Open(context.Background()), ErrAlreadyStarted)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, c.Close())

	requests, _ := sidecar.snapshot()
	require.NotEmpty(t, requests)
	assert.Equal(t, "nodes", requests[0].Category)
	assert.Equal(t, actionRequest, requests[0].Action)
	assert.JSONEq(t, `"PLEASE"`, string(requests[0].Message))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "on", got[0][0]["cmc_on_off"])
	id, err := got[1][0].ID()
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestSidecarChannelReconnects(t *testing.T) {
	var mu sync.Mutex
	accepted := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		accepted++
		mu.Unlock()
		// hang up right after the request frame
		ws.ReadMessage()
		ws.Close()
	}))
	defer server.Close()

	c := NewSidecarChannel(wsURL(server), &SidecarSettings{ReconnectTimeout: 10 * time.Millisecond})
	c.RegisterCategories("nodes")
	require.NoError(t, c.Open(context.Background()))
	defer c.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return accepted >= 3
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSidecarChannelCloseWithoutServer(t *testing.T) {
	c := NewSidecarChannel("ws://127.0.0.1:1/", &SidecarSettings{ReconnectTimeout: time.Hour})
	require.NoError(t, c.Close())
	require.NoError(t, c.Open(context.Background()))

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
}

func TestDecodeSidecarMessage(t *testing.T) {
	category, batch, err := DecodeSidecarMessage([]byte(`{"category": "nodes", "action": "info", "message": "[{\"id\": 5}]"}`))
	require.NoError(t, err)
	assert.Equal(t, "nodes", category)
	require.Len(t, batch, 1)

	_, batch, err = DecodeSidecarMessage([]byte(`{"category": "nodes", "action": "request", "message": "PLEASE"}`))
	require.NoError(t, err)
	assert.Nil(t, batch)

	_, _, err = DecodeSidecarMessage([]byte(`{"category": "nodes", "action": "info", "message": "nope"}`))
	assert.Error(t, err)
}
