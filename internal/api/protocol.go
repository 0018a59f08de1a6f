package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"

	"wormarena/internal/game"
)

// Client -> Server message types
const (
	MsgInput   = "input"
	MsgStart   = "start"
	MsgMinions = "minions"
	MsgSkill   = "skill"
	MsgMute    = "mute"
)

// Server -> Client message types. State frames are binary msgpack and carry
// no envelope.
const (
	MsgEvent    = "event"
	MsgNotify   = "notify"
	MsgGameOver = "gameover"
	MsgAck      = "ack"
	MsgError    = "error"
)

const (
	maxNameLen  = 16
	defaultName = "Player"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadPayload     = errors.New("invalid payload")
	ErrNoSkillOffer   = errors.New("no skill offer pending")
)

// Envelope wraps all outgoing text messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; RawMessage defers decoding to
// the command handler.
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// StartMsg begins a new run.
type StartMsg struct {
	Name  string `json:"name"`
	Color int    `json:"color"`
}

// InputMsg steers the player. Aim is a world-space heading in radians.
type InputMsg struct {
	Aim   float64 `json:"aim"`
	Boost bool    `json:"boost"`
}

// SkillMsg picks one of the offered skills.
type SkillMsg struct {
	Index int `json:"index"`
}

// EventFrame is the relayed form of a game.Event.
type EventFrame struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq"`
	Tick    uint64          `json:"tick"`
	Subject string          `json:"subject,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newEventFrame(ev game.Event) EventFrame {
	f := EventFrame{
		Type:    ev.Type.String(),
		Seq:     ev.Sequence,
		Tick:    ev.TickNum,
		Subject: ev.Subject,
	}
	if len(ev.Payload) > 0 && string(ev.Payload) != "null" {
		f.Payload = json.RawMessage(ev.Payload)
	}
	return f
}

// Commands is the subset of the engine a client can drive.
type Commands interface {
	StartRun(name string, colorIdx int) string
	SetInput(aim float64, boosting bool)
	SpawnMinions() bool
	ChooseSkill(i int) bool
	ToggleMute() bool
}

// applyCommand runs one inbound command and returns its reply payload. HTTP
// control routes and the WebSocket share it.
func applyCommand(eng Commands, t string, data json.RawMessage) (interface{}, error) {
	switch t {
	case MsgStart:
		var m StartMsg
		if err := decodeOptional(data, &m); err != nil {
			return nil, err
		}
		if m.Color < 0 || m.Color >= len(game.Palette) {
			return nil, fmt.Errorf("%w: color must be 0-%d", ErrBadPayload, len(game.Palette)-1)
		}
		runID := eng.StartRun(cleanName(m.Name), m.Color)
		return map[string]interface{}{"runId": runID}, nil

	case MsgInput:
		var m InputMsg
		if err := decodeOptional(data, &m); err != nil {
			return nil, err
		}
		if math.IsNaN(m.Aim) || math.IsInf(m.Aim, 0) {
			return nil, fmt.Errorf("%w: aim must be finite", ErrBadPayload)
		}
		eng.SetInput(m.Aim, m.Boost)
		return nil, nil

	case MsgMinions:
		return map[string]bool{"spawned": eng.SpawnMinions()}, nil

	case MsgSkill:
		var m SkillMsg
		if err := decodeOptional(data, &m); err != nil {
			return nil, err
		}
		if !eng.ChooseSkill(m.Index) {
			return nil, ErrNoSkillOffer
		}
		return map[string]int{"chosen": m.Index}, nil

	case MsgMute:
		return map[string]bool{"muted": eng.ToggleMute()}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, t)
}

// decodeOptional accepts an empty body as the zero value.
func decodeOptional(data json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

// cleanName trims the display name to maxNameLen runes, dropping control
// characters.
func cleanName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return defaultName
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		name = string([]rune(name)[:maxNameLen])
	}
	return name
}

var frameBufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// EncodeState packs a snapshot as a msgpack state frame. Struct fields
// without a msgpack tag fall back to their json tag.
func EncodeState(snap *game.GameSnapshot) ([]byte, error) {
	buf := frameBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer frameBufPool.Put(buf)

	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	enc.UseCompactFloats(true)

	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// DecodeState is the inverse of EncodeState.
func DecodeState(data []byte) (*game.GameSnapshot, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")

	var snap game.GameSnapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &snap, nil
}
