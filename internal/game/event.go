package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // Tick boundary with RNG seed
	EventTypeRunStart
	EventTypeWormSpawn
	EventTypeKill
	EventTypeDeath // Death with no killer (danger zone)
	EventTypeItemPickup
	EventTypeEvolution
	EventTypeWaveStart
	EventTypeBossSpawn
	EventTypeSkillOffer
	EventTypeSkillSelect
	EventTypePortal
	EventTypeAchievement
	EventTypeRecord
	EventTypeMinionSpawn
	EventTypeGameOver
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 2

// Event is the core event structure for the event log
type Event struct {
	Version   uint8     `json:"version"`   // Schema version
	Type      EventType `json:"type"`      // Event type
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic sequence
	TickNum   uint64    `json:"tickNum"`   // Frame this occurred in
	Subject   string    `json:"subject"`   // Source worm (for rate limiting)
	Payload   []byte    `json:"payload"`   // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeRunStart:
		return "run_start"
	case EventTypeWormSpawn:
		return "worm_spawn"
	case EventTypeKill:
		return "kill"
	case EventTypeDeath:
		return "death"
	case EventTypeItemPickup:
		return "item_pickup"
	case EventTypeEvolution:
		return "evolution"
	case EventTypeWaveStart:
		return "wave_start"
	case EventTypeBossSpawn:
		return "boss_spawn"
	case EventTypeSkillOffer:
		return "skill_offer"
	case EventTypeSkillSelect:
		return "skill_select"
	case EventTypePortal:
		return "portal"
	case EventTypeAchievement:
		return "achievement"
	case EventTypeRecord:
		return "record"
	case EventTypeMinionSpawn:
		return "minion_spawn"
	case EventTypeGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// MarshalText lets event types appear by name in JSON.
func (t EventType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Typed payloads for different event types

// TickPayload contains tick boundary information for replay
type TickPayload struct {
	RNGSeed     int64 `json:"rngSeed"`
	WormCount   int   `json:"wormCount"`
	DeltaTimeNs int64 `json:"deltaTimeNs"`
}

// RunStartPayload describes a fresh run
type RunStartPayload struct {
	RunID      string  `json:"runId"`
	PlayerName string  `json:"playerName"`
	ColorIndex int     `json:"colorIndex"`
	WorldW     float64 `json:"worldW"`
	WorldH     float64 `json:"worldH"`
}

// WormSpawnPayload is used for AI and boss spawns
type WormSpawnPayload struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Length float64 `json:"length"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Boss   bool    `json:"boss,omitempty"`
}

// KillPayload contains kill and death details. Killer fields are empty for
// deaths.
type KillPayload struct {
	KillerID     string  `json:"killerId,omitempty"`
	KillerName   string  `json:"killerName,omitempty"`
	VictimID     string  `json:"victimId"`
	VictimName   string  `json:"victimName"`
	VictimLength float64 `json:"victimLength"`
	Bonus        int     `json:"bonus,omitempty"`
	Boss         bool    `json:"boss,omitempty"`
}

type ItemPickupPayload struct {
	WormID string `json:"wormId"`
	Item   string `json:"item"`
}

type EvolutionPayload struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Name string `json:"name"`
}

// WaveStartPayload reports the map after a wave escalated
type WaveStartPayload struct {
	Wave      int  `json:"wave"`
	Bonus     int  `json:"bonus"`
	Boss      bool `json:"boss"`
	Obstacles int  `json:"obstacles"`
	Portals   int  `json:"portals"`
	Danger    bool `json:"danger"`
}

type SkillOfferPayload struct {
	Choices []string `json:"choices"`
	Score   int      `json:"score"`
}

type SkillSelectPayload struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
}

// PortalPayload carries the exit position
type PortalPayload struct {
	WormID string  `json:"wormId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type AchievementPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type RecordPayload struct {
	Fields []string `json:"fields"`
}

type MinionSpawnPayload struct {
	Count    int     `json:"count"`
	Cooldown float64 `json:"cooldown"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, subject string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		Subject:   subject,
		Payload:   EncodePayload(payload),
	}
}
