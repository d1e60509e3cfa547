package api

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/talgya/dotarena/internal/config"
	"github.com/talgya/dotarena/internal/dots"
	"github.com/talgya/dotarena/internal/engine"
)

func newTestServer(t *testing.T, adminKey string) (*Server, *httptest.Server) {
	t.Helper()
	set := config.Default()
	set.DotsPerWave = 0
	tables, err := config.Build(set)
	require.NoError(t, err)

	sim := engine.NewSimulation(tables, engine.Options{})
	sim.SpawnPlayer(dots.Vec3{X: 3}, dots.TeamRed, 1)
	require.NoError(t, sim.Step(0.05, nil))

	srv := &Server{
		Sim:           sim,
		Eng:           engine.NewEngine(),
		AdminKey:      adminKey,
		RunID:         "run-1",
		FrameInterval: 5 * time.Millisecond,
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestStatus(t *testing.T) {
	_, ts := newTestServer(t, "")

	var status map[string]any
	getJSON(t, ts.URL+"/api/v1/status", &status)
	assert.Equal(t, "dotarena", status["name"])
	assert.Equal(t, "run-1", status["run_id"])
	assert.EqualValues(t, 1, status["tick"])
	assert.EqualValues(t, 1, status["alive"])
	assert.EqualValues(t, 1, status["speed"])
	assert.Contains(t, status, "player")
}

func TestLevels(t *testing.T) {
	_, ts := newTestServer(t, "")

	var levels []config.LevelInfo
	getJSON(t, ts.URL+"/api/v1/levels", &levels)
	require.Len(t, levels, 30)
	assert.Equal(t, -1, levels[1].ShootTarget)
	assert.Equal(t, 0, levels[4].ShootTarget)
	assert.Equal(t, 5, levels[4].Size)
}

func TestFrameEncodings(t *testing.T) {
	_, ts := newTestServer(t, "")

	var frame engine.Frame
	getJSON(t, ts.URL+"/api/v1/frame", &frame)
	require.Len(t, frame.Dots, 1)
	assert.Equal(t, "manual", frame.Dots[0].Strategy)
	assert.Equal(t, 3.0, frame.Dots[0].X)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/frame", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", msgpackType)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, msgpackType, resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var packed engine.Frame
	require.NoError(t, msgpack.Unmarshal(raw, &packed))
	assert.Equal(t, frame.Tick, packed.Tick)
	assert.Equal(t, frame.Dots[0].Handle, packed.Dots[0].Handle)
}

func TestSpeedRequiresAdminToken(t *testing.T) {
	srv, ts := newTestServer(t, "secret")

	post := func(token, body string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/speed", strings.NewReader(body))
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusUnauthorized, post("", `{"speed":2}`).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, post("wrong", `{"speed":2}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post("secret", `{"speed":500}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post("secret", `nope`).StatusCode)
	assert.Equal(t, http.StatusOK, post("secret", `{"speed":2.5}`).StatusCode)
	assert.Equal(t, 2.5, srv.Eng.Speed())

	var got map[string]float64
	getJSON(t, ts.URL+"/api/v1/speed", &got)
	assert.Equal(t, 2.5, got["speed"])
}

func TestSpeedDisabledWithoutKey(t *testing.T) {
	_, ts := newTestServer(t, "")
	resp, err := http.Post(ts.URL+"/api/v1/speed", "application/json", bytes.NewBufferString(`{"speed":2}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStreamPushesFramesAndAcceptsInput(t *testing.T) {
	srv, ts := newTestServer(t, "")
	player, ok := srv.Sim.Player()
	require.True(t, ok)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, msgType)
	var frame engine.Frame
	require.NoError(t, msgpack.Unmarshal(raw, &frame))
	require.Len(t, frame.Dots, 1)
	assert.Equal(t, player, frame.Dots[0].Handle)

	in, err := json.Marshal(DirectionInput{Index: player.Index, Gen: player.Gen, X: 1})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, in))

	require.Eventually(t, func() bool {
		if err := srv.Sim.Step(0.05, nil); err != nil {
			return false
		}
		f := srv.Sim.Frame(nil)
		return len(f.Dots) == 1 && math.Abs(f.Dots[0].Yaw-math.Pi/2) < 1e-9
	}, 2*time.Second, 10*time.Millisecond)

	// Inputs for stale handles come back as errors.
	bad, err := msgpack.Marshal(DirectionInput{Index: player.Index, Gen: player.Gen + 7, X: 1})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, bad))

	var rejected string
	for rejected == "" {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var ie inputError
		require.NoError(t, msgpack.Unmarshal(raw, &ie))
		rejected = ie.Error
	}
	assert.Contains(t, rejected, dots.ErrStaleHandle.Error())
}

func TestCORSOrigins(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := corsMiddleware(newOriginSet([]string{" https://arena.example ", ""}), next)

	get := func(method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/v1/status", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := get(http.MethodGet, "https://arena.example")
	assert.Equal(t, "https://arena.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(http.MethodGet, "https://elsewhere.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = get(http.MethodOptions, "https://arena.example")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	open := newOriginSet(nil)
	assert.True(t, open.allows("https://anything.example"))
	assert.False(t, newOriginSet([]string{"https://arena.example"}).allows("http://localhost:3000"))
}
