package api

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"infinite-flight/internal/geometry/vector"
	"infinite-flight/internal/sim"
	"infinite-flight/internal/terrain"
)

func dial(t *testing.T, url string) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	c.SetReadLimit(16 << 20)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c, ctx
}

// readUntil reads messages until one satisfies ok.
func readUntil(t *testing.T, ctx context.Context, c *websocket.Conn, ok func(ServerMessage) bool) ServerMessage {
	t.Helper()
	for {
		typ, b, err := c.Read(ctx)
		require.NoError(t, err)

		var msg ServerMessage
		if typ == websocket.MessageText {
			require.NoError(t, json.Unmarshal(b, &msg))
		} else {
			require.NoError(t, cbor.Unmarshal(b, &msg))
		}
		if ok(msg) {
			return msg
		}
	}
}

func TestClientMessage_Command(t *testing.T) {
	now := time.Now()

	cmd, err := ClientMessage{Op: sim.CmdKey, Key: "w", Pressed: true}.Command(now)
	require.NoError(t, err)
	assert.Equal(t, sim.KeyCommand{At: now, Key: "w", Pressed: true}, cmd)

	cmd, err = ClientMessage{Op: sim.CmdGoal, Position: vector.Vec3{Y: 100}}.Command(now)
	require.NoError(t, err)
	assert.Equal(t, sim.CmdGoal, cmd.Type())

	_, err = ClientMessage{Op: "barrel_roll"}.Command(now)
	assert.ErrorIs(t, err, sim.ErrInvalidCommand)

	_, err = ClientMessage{Op: sim.CmdResize}.Command(now)
	assert.ErrorIs(t, err, sim.ErrInvalidCommand)

	nan := math.NaN()
	for _, m := range []ClientMessage{
		{Op: sim.CmdConfig, Patch: sim.ConfigPatch{EnginePower: &nan}},
		{Op: sim.CmdGoal, Position: vector.Vec3{X: nan, Y: 100}},
		{Op: sim.CmdPick, Origin: vector.Vec3{Y: math.Inf(1)}, Direction: vector.Vec3{Y: -1}},
	} {
		// Non-finite values survive the CBOR round trip and must still be refused.
		b, err := cbor.Marshal(m)
		require.NoError(t, err)
		var decoded ClientMessage
		require.NoError(t, cbor.Unmarshal(b, &decoded))

		_, err = decoded.Command(now)
		assert.ErrorIs(t, err, sim.ErrInvalidCommand, "op %s", m.Op)
	}
}

func TestWS_CBORFramesAndCommands(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	c, ctx := dial(t, ts.URL+"/ws")

	first := readUntil(t, ctx, c, func(m ServerMessage) bool { return m.Op == "frame" })
	require.NotNil(t, first.Frame)
	assert.Len(t, first.Frame.Chunks, terrain.ChunkCount)

	b, err := cbor.Marshal(ClientMessage{Op: sim.CmdGoal, Position: vector.Vec3{X: 10, Y: 120, Z: -300}})
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, websocket.MessageBinary, b))

	got := readUntil(t, ctx, c, func(m ServerMessage) bool {
		return m.Frame != nil && m.Frame.Goal != nil
	})
	require.NotNil(t, got.Frame.Goal)
	assert.Equal(t, vector.Vec3{X: 10, Y: 120, Z: -300}, got.Frame.Goal.Position)
}

func TestWS_JSONEncodingAndErrors(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	c, ctx := dial(t, ts.URL+"/ws?encoding=json")

	typ, _, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"op":"key","key":"nope","pressed":true}`)))
	msg := readUntil(t, ctx, c, func(m ServerMessage) bool { return m.Op == "error" })
	assert.Contains(t, msg.Error, "nope")

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{{`)))
	msg = readUntil(t, ctx, c, func(m ServerMessage) bool { return m.Op == "error" })
	assert.Equal(t, "malformed message", msg.Error)
}

func TestWS_InputRateLimited(t *testing.T) {
	ts, _ := newTestServer(t, Options{Encoding: encodingJSON, InputRate: 0.001, InputBurst: 1})
	c, ctx := dial(t, ts.URL+"/ws")

	// Only the first message fits in the burst; the rest are dropped without a reply.
	for range 3 {
		require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"op":"key","key":"nope"}`)))
	}

	msg := readUntil(t, ctx, c, func(m ServerMessage) bool { return m.Op == "error" })
	assert.Contains(t, msg.Error, "nope")

	short, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	for {
		typ, b, err := c.Read(short)
		if err != nil {
			break
		}
		var m ServerMessage
		require.Equal(t, websocket.MessageText, typ)
		require.NoError(t, json.Unmarshal(b, &m))
		require.NotEqual(t, "error", m.Op, "rate-limited command got a reply")
	}
}
