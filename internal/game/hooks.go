package game

// Cue names a fire-and-forget sound effect.
type Cue uint8

const (
	CueEat Cue = iota
	CueBoost
	CueKill
	CueDeath
	CueItemPickup
	CueShield
	CueFreeze
	CueMinionSpawn
	CueAchievement
	CueEvolution
	CueWaveStart
	CueBossSpawn
	CueSkillSelect
	CuePortal
)

var cueNames = [...]string{
	CueEat:         "eat",
	CueBoost:       "boost",
	CueKill:        "kill",
	CueDeath:       "death",
	CueItemPickup:  "itemPickup",
	CueShield:      "shield",
	CueFreeze:      "freeze",
	CueMinionSpawn: "minionSpawn",
	CueAchievement: "achievement",
	CueEvolution:   "evolution",
	CueWaveStart:   "waveStart",
	CueBossSpawn:   "bossSpawn",
	CueSkillSelect: "skillSelect",
	CuePortal:      "portal",
}

func (c Cue) String() string {
	if int(c) < len(cueNames) {
		return cueNames[c]
	}
	return "unknown"
}

// Audio receives sound cues. Return values are never consulted by the
// simulation.
type Audio interface {
	Play(c Cue)
	StartAmbience()
	StopAmbience()
	ToggleMute() bool
	Muted() bool
}

// Emphasis selects how loudly a notification is shown.
type Emphasis uint8

const (
	EmphasisNormal Emphasis = iota
	EmphasisLarge
)

// Notifier receives HUD feedback.
type Notifier interface {
	Notify(text, color string, emphasis Emphasis)
	FloatText(at Vec2, text, color string)
	Absorb(from, to Vec2, color string)
}

// RunSummary is handed to the game-over callback.
type RunSummary struct {
	RunID        string   `json:"runId"`
	PlayerName   string   `json:"playerName"`
	Score        int      `json:"score"`
	Length       int      `json:"length"`
	Kills        int      `json:"kills"`
	Wave         int      `json:"wave"`
	Stage        int      `json:"stage"`
	StageIcon    string   `json:"stageIcon"`
	SurvivalTime float64  `json:"survivalTime"`
	Survival     string   `json:"survival"`
	NewRecords   []string `json:"newRecords,omitempty"`
}

// EventSink receives gameplay events for logging and relay.
type EventSink func(t EventType, subject string, payload interface{})

type silentAudio struct{ muted bool }

func (a *silentAudio) Play(Cue)         {}
func (a *silentAudio) StartAmbience()   {}
func (a *silentAudio) StopAmbience()    {}
func (a *silentAudio) Muted() bool      { return a.muted }
func (a *silentAudio) ToggleMute() bool { a.muted = !a.muted; return a.muted }

type silentNotifier struct{}

func (silentNotifier) Notify(string, string, Emphasis) {}
func (silentNotifier) FloatText(Vec2, string, string)  {}
func (silentNotifier) Absorb(Vec2, Vec2, string)       {}
