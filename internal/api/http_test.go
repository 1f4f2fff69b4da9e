package api

import (
	"bufio"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-flight/internal/sim"
	"infinite-flight/internal/store"
	"infinite-flight/internal/terrain"
)

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *sim.Engine) {
	t.Helper()
	s := sim.New(sim.DefaultSettings(), sim.SystemClock{}, rand.New(rand.NewPCG(5, 6)))
	eng := sim.NewEngine(sim.Config{TickHz: 200, Sim: s, Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = eng.Run(ctx) }()

	opts.Logger = zerolog.Nop()
	ts := httptest.NewServer(NewServer(eng, opts).Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts, eng
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestState(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var f sim.Frame
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&f))
	assert.Len(t, f.HUD, 7)
	assert.Len(t, f.Aircraft.Parts, 8)
}

func TestTerrain(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/terrain")
	require.NoError(t, err)
	defer resp.Body.Close()

	var chunks []terrain.Chunk
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chunks))
	assert.Len(t, chunks, terrain.ChunkCount)
}

func TestCommands(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	tests := []struct {
		path   string
		body   string
		status int
	}{
		{"/command/key", `{"key":"w","pressed":true}`, http.StatusOK},
		{"/command/key", `{"key":"x","pressed":true}`, http.StatusBadRequest},
		{"/command/key", `not json`, http.StatusBadRequest},
		{"/command/goal", `{"position":{"x":0,"y":100,"z":-50}}`, http.StatusOK},
		{"/command/pick", `{"origin":{"x":0,"y":500,"z":0},"direction":{"x":0,"y":-1,"z":0}}`, http.StatusOK},
		{"/command/pick", `{"origin":{"x":0,"y":500,"z":0},"direction":{"x":0,"y":0,"z":0}}`, http.StatusBadRequest},
		{"/command/config", `{"wingZ":1.5,"wireframe":true}`, http.StatusOK},
		{"/command/config", `{"wingScale":9}`, http.StatusBadRequest},
		{"/command/view", ``, http.StatusOK},
		{"/command/resize", `{"width":800,"height":600}`, http.StatusOK},
		{"/command/resize", `{"width":0,"height":600}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.body, func(t *testing.T) {
			resp := post(t, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestCommand_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/command/key")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCommand_ReachesEngine(t *testing.T) {
	ts, eng := newTestServer(t, Options{})

	resp := post(t, ts.URL+"/command/config", `{"wireframe":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "config", body["type"])

	require.Eventually(t, func() bool {
		f, err := eng.GetState(context.Background())
		return err == nil && f.Wireframe
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFlights_Disabled(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/flights")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestFlights(t *testing.T) {
	st, err := store.Open(store.MemoryPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f, err := st.StartFlight(context.Background(), "test", time.Now())
	require.NoError(t, err)

	ts, _ := newTestServer(t, Options{Store: st})

	resp, err := http.Get(ts.URL + "/flights?limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []store.Flight
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, f.ID, list[0].ID)

	one, err := http.Get(ts.URL + "/flights/" + f.ID.String())
	require.NoError(t, err)
	defer one.Body.Close()
	assert.Equal(t, http.StatusOK, one.StatusCode)

	missing, err := http.Get(ts.URL + "/flights/" + uuid.NewString())
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	bad, err := http.Get(ts.URL + "/flights/not-a-uuid")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	badLimit, err := http.Get(ts.URL + "/flights?limit=x")
	require.NoError(t, err)
	defer badLimit.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badLimit.StatusCode)
}

func TestStreamSSE(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var f sim.Frame
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &f))
		assert.Len(t, f.Chunks, terrain.ChunkCount)
		return
	}
	t.Fatalf("no frame received: %v", sc.Err())
}
