package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"infinite-flight/internal/geometry/vector"
	"infinite-flight/internal/sim"
)

const (
	encodingCBOR = "cbor"
	encodingJSON = "json"

	writeTimeout = 5 * time.Second
)

// ClientMessage is an inbound websocket command. Op selects which of the
// remaining fields are read.
type ClientMessage struct {
	Op        sim.CommandType `json:"op" cbor:"op"`
	Key       string          `json:"key,omitempty" cbor:"key,omitempty"`
	Pressed   bool            `json:"pressed,omitempty" cbor:"pressed,omitempty"`
	Origin    vector.Vec3     `json:"origin" cbor:"origin"`
	Direction vector.Vec3     `json:"direction" cbor:"direction"`
	Position  vector.Vec3     `json:"position" cbor:"position"`
	Patch     sim.ConfigPatch `json:"patch" cbor:"patch"`
	Width     int             `json:"width,omitempty" cbor:"width,omitempty"`
	Height    int             `json:"height,omitempty" cbor:"height,omitempty"`
}

// Command converts m into the engine command it names.
func (m ClientMessage) Command(at time.Time) (sim.Command, error) {
	var cmd sim.Command
	switch m.Op {
	case sim.CmdKey:
		cmd = sim.KeyCommand{At: at, Key: m.Key, Pressed: m.Pressed}
	case sim.CmdPick:
		cmd = sim.PickCommand{At: at, Origin: m.Origin, Direction: m.Direction}
	case sim.CmdGoal:
		cmd = sim.GoalCommand{At: at, Position: m.Position}
	case sim.CmdConfig:
		cmd = sim.ConfigCommand{At: at, Patch: m.Patch}
	case sim.CmdView:
		cmd = sim.ViewCommand{At: at}
	case sim.CmdResize:
		cmd = sim.ResizeCommand{At: at, Width: m.Width, Height: m.Height}
	default:
		return nil, fmt.Errorf("%w: unknown op %q", sim.ErrInvalidCommand, m.Op)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// ServerMessage is an outbound websocket message.
type ServerMessage struct {
	Op    string     `json:"op" cbor:"op"`
	Frame *sim.Frame `json:"frame,omitempty" cbor:"frame,omitempty"`
	Error string     `json:"error,omitempty" cbor:"error,omitempty"`
}

func WriteTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, typ websocket.MessageType, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return c.Write(ctx, typ, msg)
}

type wsClient struct {
	conn     *websocket.Conn
	encoding string
	limiter  *rate.Limiter
	log      zerolog.Logger
}

func (c *wsClient) encode(msg ServerMessage) (websocket.MessageType, []byte, error) {
	if c.encoding == encodingJSON {
		b, err := json.Marshal(msg)
		return websocket.MessageText, b, err
	}
	b, err := cbor.Marshal(msg)
	return websocket.MessageBinary, b, err
}

func (c *wsClient) decode(typ websocket.MessageType, b []byte) (ClientMessage, error) {
	var msg ClientMessage
	var err error
	if typ == websocket.MessageText {
		err = json.Unmarshal(b, &msg)
	} else {
		err = cbor.Unmarshal(b, &msg)
	}
	return msg, err
}

func (c *wsClient) send(ctx context.Context, msg ServerMessage) error {
	typ, b, err := c.encode(msg)
	if err != nil {
		return err
	}
	return WriteTimeout(ctx, writeTimeout, c.conn, typ, b)
}

type inbound struct {
	typ websocket.MessageType
	b   []byte
}

func (s *Server) streamWS(w http.ResponseWriter, r *http.Request) {
	encoding := s.encoding
	if e := r.URL.Query().Get("encoding"); e != "" {
		if e != encodingCBOR && e != encodingJSON {
			http.Error(w, "unknown encoding", http.StatusBadRequest)
			return
		}
		encoding = e
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Error().Err(err).Msg("error accepting websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &wsClient{
		conn:     conn,
		encoding: encoding,
		limiter:  rate.NewLimiter(s.inputRate, s.inputBurst),
		log: s.log.With().
			Str("remote", r.RemoteAddr).
			Str("encoding", encoding).
			Logger(),
	}
	client.log.Info().Msg("client joined")

	frames, unsub := s.eng.Subscribe(ctx)
	defer unsub()

	receive := make(chan inbound, 16)
	go func() {
		defer cancel()
		for {
			typ, b, err := conn.Read(ctx)
			if err != nil {
				status := websocket.CloseStatus(err)
				if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
					client.log.Debug().Err(err).Msg("read failed")
				}
				return
			}
			select {
			case receive <- inbound{typ: typ, b: b}:
			case <-ctx.Done():
				return
			}
		}
	}()

	err = s.serveWS(ctx, client, frames, receive)
	client.log.Info().Msg("client left")

	switch {
	case errors.Is(err, errTooSlow):
		conn.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with frames")
	case err != nil && ctx.Err() == nil:
		client.log.Warn().Err(err).Msg("websocket closed")
		conn.Close(websocket.StatusInternalError, "")
	default:
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

var errTooSlow = errors.New("client too slow")

func (s *Server) serveWS(ctx context.Context, c *wsClient, frames <-chan sim.Frame, receive <-chan inbound) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if err := c.send(ctx, ServerMessage{Op: "frame", Frame: &f}); err != nil {
				if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
					return errTooSlow
				}
				return err
			}

		case in := <-receive:
			if !c.limiter.Allow() {
				c.log.Debug().Msg("input rate exceeded, dropping command")
				continue
			}
			msg, err := c.decode(in.typ, in.b)
			if err != nil {
				if err := c.send(ctx, ServerMessage{Op: "error", Error: "malformed message"}); err != nil {
					return err
				}
				continue
			}
			cmd, err := msg.Command(time.Now())
			if err != nil {
				if err := c.send(ctx, ServerMessage{Op: "error", Error: err.Error()}); err != nil {
					return err
				}
				continue
			}
			if !s.eng.Submit(cmd) {
				if err := c.send(ctx, ServerMessage{Op: "error", Error: "engine busy"}); err != nil {
					return err
				}
			}
		}
	}
}
