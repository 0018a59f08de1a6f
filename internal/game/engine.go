package game

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"wormarena/internal/game/spatial"
	"wormarena/internal/store"
)

// EngineOptions configures an Engine. Zero values fall back to defaults.
type EngineOptions struct {
	Width    float64
	Height   float64
	TickRate int
	Seed     int64 // 0 = time based, new seed per run
	CellSize float64
	Limits   ResourceLimits
	Audio    Audio
	Store    store.Store // nil = in-memory records
}

// Notification is one queued HUD message.
type Notification struct {
	Seq   uint64    `json:"seq"`
	Text  string    `json:"text"`
	Color string    `json:"color"`
	Large bool      `json:"large,omitempty"`
	Float bool      `json:"float,omitempty"` // floating text at X,Y
	X     float64   `json:"x,omitempty"`
	Y     float64   `json:"y,omitempty"`
	At    time.Time `json:"at"`
}

// Engine is the host loop: it owns one World, steps it from a ticker
// goroutine and publishes snapshots for lock-free rendering.
type Engine struct {
	mu    sync.RWMutex
	world *World

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	lastTick time.Time

	// Stats
	tickCount    int64
	lastTickCost time.Duration

	opts   EngineOptions
	limits ResourceLimits

	// Snapshot system for lock-free render separation
	snapshotPool *SnapshotPool

	// Event sourcing for replay and debugging
	eventLog *EventLog

	records      *RecordBook
	achievements *AchievementBook
	audio        Audio

	notifyMu      sync.Mutex
	notifications []Notification
	notifySeq     uint64

	lastSummary *RunSummary
	onGameOver  func(RunSummary)
	onTick      func(cost time.Duration, snap *GameSnapshot)
	onNotify    func(Notification)
}

// NewEngine creates an engine with an idle world. Call StartRun to play.
func NewEngine(opts EngineOptions) *Engine {
	if opts.TickRate <= 0 {
		opts.TickRate = 60
	}
	if opts.Limits == (ResourceLimits{}) {
		opts.Limits = DefaultLimits
	}
	if opts.Audio == nil {
		opts.Audio = &silentAudio{}
	}

	e := &Engine{
		tickRate:     opts.TickRate,
		stopChan:     make(chan struct{}),
		opts:         opts,
		limits:       opts.Limits,
		snapshotPool: NewSnapshotPool(opts.Limits),
		eventLog:     NewEventLog(),
		records:      NewRecordBook(opts.Store),
		achievements: NewAchievementBook(opts.Store),
		audio:        opts.Audio,
	}
	e.world = e.newWorld("")
	e.ProduceSnapshot()
	return e
}

func (e *Engine) newWorld(runID string) *World {
	return NewWorld(WorldOptions{
		Width:        e.opts.Width,
		Height:       e.opts.Height,
		Seed:         e.opts.Seed,
		CellSize:     e.opts.CellSize,
		MaxParticles: e.limits.MaxParticles,
		RunID:        runID,
		Audio:        e.audio,
		Notifier:     (*engineNotifier)(e),
		Records:      e.records,
		Achievements: e.achievements,
		Events:       e.emitEvent,
		OnGameOver:   e.handleGameOver,
	})
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.lastTick = time.Now()
	e.mu.Unlock()

	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🎮 Game engine started at %d TPS", e.tickRate)
}

// Stop stops the game loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	e.audio.StopAmbience()
	log.Println("🛑 Game engine stopped")
}

// tick steps the world by the wall-clock time since the last tick. The
// world clamps long stalls itself.
func (e *Engine) tick() {
	start := time.Now()

	e.mu.Lock()
	dt := start.Sub(e.lastTick).Seconds()
	if e.lastTick.IsZero() || dt <= 0 {
		dt = 1.0 / float64(e.tickRate)
	}
	e.lastTick = start
	e.stepLocked(dt)
	cost := time.Since(start)
	e.lastTickCost = cost
	hook := e.onTick
	snap := e.snapshotPool.AcquireRead()
	e.mu.Unlock()

	if hook != nil {
		hook(cost, snap)
	}
}

// Step advances the world by dt seconds outside the ticker. Tests and the
// terminal client drive the engine this way.
func (e *Engine) Step(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepLocked(dt)
}

func (e *Engine) stepLocked(dt float64) {
	e.tickCount++
	wd := e.world

	// One tick boundary per second is enough to line the log up with frames
	if e.tickCount%int64(e.tickRate) == 0 {
		e.eventLog.EmitSimple(EventTypeTick, wd.Frame, "", TickPayload{
			RNGSeed:     e.opts.Seed,
			WormCount:   len(wd.worms),
			DeltaTimeNs: int64(dt * 1e9),
		})
	}

	wd.Step(dt)
	e.ProduceSnapshot()
}

// StartRun discards the current world and starts a fresh run. It returns
// the new run id.
func (e *Engine) StartRun(name string, colorIdx int) string {
	runID := uuid.NewString()

	e.mu.Lock()
	e.world.audio.StopAmbience()
	e.world = e.newWorld(runID)
	e.world.StartRun(name, colorIdx)
	player := e.world.PlayerName
	e.lastSummary = nil
	e.ProduceSnapshot()
	e.mu.Unlock()

	e.notifyMu.Lock()
	e.notifications = e.notifications[:0]
	e.notifyMu.Unlock()

	log.Printf("🐛 Run %s started for %q", runID, player)
	return runID
}

// SetInput forwards aim and boost to the world.
func (e *Engine) SetInput(aim float64, boosting bool) {
	e.mu.Lock()
	e.world.SetInput(aim, boosting)
	e.mu.Unlock()
}

// SpawnMinions summons minions if the cooldown allows it.
func (e *Engine) SpawnMinions() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.SpawnMinions()
}

// ChooseSkill picks one of the offered skills by index.
func (e *Engine) ChooseSkill(i int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok := e.world.ChooseSkill(i)
	if ok {
		e.ProduceSnapshot()
	}
	return ok
}

// ToggleMute flips the audio mute state.
func (e *Engine) ToggleMute() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.ToggleMute()
}

// Muted reports the audio mute state.
func (e *Engine) Muted() bool { return e.audio.Muted() }

// SetCallbacks sets the game-over and per-tick hooks. Both run on the tick
// goroutine; onGameOver runs with the engine locked and must not call back
// into it.
func (e *Engine) SetCallbacks(onGameOver func(RunSummary), onTick func(time.Duration, *GameSnapshot)) {
	e.mu.Lock()
	e.onGameOver = onGameOver
	e.onTick = onTick
	e.mu.Unlock()
}

// OnNotify registers a listener for HUD notifications.
func (e *Engine) OnNotify(fn func(Notification)) {
	e.notifyMu.Lock()
	e.onNotify = fn
	e.notifyMu.Unlock()
}

func (e *Engine) handleGameOver(s RunSummary) {
	e.lastSummary = &s
	log.Printf("💀 Run %s over: score %d, length %d, wave %d, %s", s.RunID, s.Score, s.Length, s.Wave, s.Survival)
	if e.onGameOver != nil {
		e.onGameOver(s)
	}
}

func (e *Engine) emitEvent(t EventType, subject string, payload interface{}) {
	e.eventLog.EmitSimple(t, e.world.Frame, subject, payload)
}

// LastSummary returns the result of the last finished run.
func (e *Engine) LastSummary() (RunSummary, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.lastSummary == nil {
		return RunSummary{}, false
	}
	return *e.lastSummary, true
}

// Summary reports the current run, finished or not.
func (e *Engine) Summary() RunSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.world.Summary()
}

// State returns the run state and whether a skill choice is pending.
func (e *Engine) State() (RunState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.world.State, e.world.Paused()
}

// RunID returns the current run id (empty before the first run).
func (e *Engine) RunID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.world.RunID
}

// Leaderboard returns the top n worms by score.
func (e *Engine) Leaderboard(n int) []LeaderboardEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.world.Leaderboard(n)
}

// SkillOffer returns the pending skill choices, if any.
func (e *Engine) SkillOffer() []SkillDef {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]SkillDef(nil), e.world.skills.Choices...)
}

// Records returns the personal bests.
func (e *Engine) Records() store.Records {
	return e.records.Records()
}

// AchievementStatus is an achievement with its unlocked flag.
type AchievementStatus struct {
	AchievementDef
	Unlocked bool `json:"unlocked"`
}

// Achievements lists every achievement in display order.
func (e *Engine) Achievements() []AchievementStatus {
	out := make([]AchievementStatus, len(AchievementDefs))
	for i, def := range AchievementDefs {
		out[i] = AchievementStatus{AchievementDef: def, Unlocked: e.achievements.Unlocked(def.ID)}
	}
	return out
}

// Notifications returns the queued HUD messages, oldest first.
func (e *Engine) Notifications() []Notification {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	return append([]Notification(nil), e.notifications...)
}

// DrainNotifications returns and clears the queue.
func (e *Engine) DrainNotifications() []Notification {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	out := append([]Notification(nil), e.notifications...)
	e.notifications = e.notifications[:0]
	return out
}

func (e *Engine) pushNotification(n Notification) {
	e.notifyMu.Lock()
	e.notifySeq++
	n.Seq = e.notifySeq
	n.At = time.Now()
	if limit := e.limits.MaxNotifications; limit > 0 && len(e.notifications) >= limit {
		copy(e.notifications, e.notifications[1:])
		e.notifications = e.notifications[:len(e.notifications)-1]
	}
	e.notifications = append(e.notifications, n)
	fn := e.onNotify
	e.notifyMu.Unlock()

	if fn != nil {
		fn(n)
	}
}

// engineNotifier adapts the engine's queue to the world's Notifier hook.
type engineNotifier Engine

func (n *engineNotifier) Notify(text, color string, em Emphasis) {
	(*Engine)(n).pushNotification(Notification{Text: text, Color: color, Large: em == EmphasisLarge})
}

func (n *engineNotifier) FloatText(at Vec2, text, color string) {
	(*Engine)(n).pushNotification(Notification{Text: text, Color: color, Float: true, X: at.X, Y: at.Y})
}

// Absorb trails are drawn client side from eat events.
func (n *engineNotifier) Absorb(from, to Vec2, color string) {}

// EngineStats is the /api/stats payload.
type EngineStats struct {
	RunID        string            `json:"runId"`
	State        string            `json:"state"`
	Paused       bool              `json:"paused"`
	Frame        uint64            `json:"frame"`
	Ticks        int64             `json:"ticks"`
	TickCostUs   int64             `json:"tickCostUs"`
	Worms        int               `json:"worms"`
	Foods        int               `json:"foods"`
	Items        int               `json:"items"`
	Particles    int               `json:"particles"`
	Obstacles    int               `json:"obstacles"`
	Portals      int               `json:"portals"`
	Wave         int               `json:"wave"`
	FoodFree     int               `json:"foodPoolFree"`
	ParticleFree int               `json:"particlePoolFree"`
	FoodGrid     spatial.HashStats `json:"foodGrid"`
	SegmentGrid  spatial.HashStats `json:"segmentGrid"`
}

// Stats returns engine counters.
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	wd := e.world
	foodFree, partFree := wd.PoolStats()
	foodGrid, segGrid := wd.GridStats()
	return EngineStats{
		RunID:        wd.RunID,
		State:        wd.State.String(),
		Paused:       wd.Paused(),
		Frame:        wd.Frame,
		Ticks:        e.tickCount,
		TickCostUs:   e.lastTickCost.Microseconds(),
		Worms:        len(wd.worms),
		Foods:        len(wd.foods),
		Items:        len(wd.items),
		Particles:    len(wd.particles),
		Obstacles:    len(wd.obstacles),
		Portals:      len(wd.portals),
		Wave:         wd.Wave,
		FoodFree:     foodFree,
		ParticleFree: partFree,
		FoodGrid:     foodGrid,
		SegmentGrid:  segGrid,
	}
}

// GetSnapshot returns the latest immutable snapshot for lock-free rendering
func (e *Engine) GetSnapshot() *GameSnapshot {
	return e.snapshotPool.AcquireRead()
}

// ProduceSnapshot copies the world into the next snapshot slot.
// Called at the end of each tick with the engine locked.
func (e *Engine) ProduceSnapshot() {
	wd := e.world
	snap := e.snapshotPool.AcquireWrite()
	snap.Frame = wd.Frame
	snap.RunID = wd.RunID
	snap.State = wd.State.String()
	snap.Paused = wd.Paused()
	snap.WorldW, snap.WorldH = wd.W, wd.H

	// Player first so it survives the worm cap
	alive := 0
	if p := wd.player; p != nil && p.alive {
		e.snapshotWorm(snap, p)
	}
	for _, w := range wd.worms {
		if !w.alive {
			continue
		}
		alive++
		if w.IsPlayer || len(snap.Worms) >= e.limits.MaxWorms {
			continue
		}
		e.snapshotWorm(snap, w)
	}

	for _, f := range wd.foods {
		if len(snap.Foods) >= e.limits.MaxFoods {
			break
		}
		if !f.alive {
			continue
		}
		snap.Foods = append(snap.Foods, FoodSnapshot{
			X: f.X, Y: f.Y, Size: f.Size, Color: f.Color, Glow: f.Glow,
			Golden: f.Tier.Def().Golden, Phase: f.Phase,
		})
	}

	for _, it := range wd.items {
		if len(snap.Items) >= e.limits.MaxItems {
			break
		}
		if !it.alive {
			continue
		}
		def := it.Kind.Def()
		snap.Items = append(snap.Items, ItemSnapshot{
			X: it.X, Y: it.Y, Kind: def.ID, Icon: def.Icon, Color: def.Color, Phase: it.Phase,
		})
	}

	for _, o := range wd.obstacles {
		snap.Obstacles = append(snap.Obstacles, ObstacleSnapshot{X: o.X, Y: o.Y, Size: o.Size})
	}
	for _, pp := range wd.portals {
		snap.Portals = append(snap.Portals, PortalSnapshot{
			AX: pp.A.X, AY: pp.A.Y, BX: pp.B.X, BY: pp.B.Y,
			Size: pp.Size, Hue: pp.Hue, Phase: pp.Phase,
			Ready: pp.A.Cooldown <= 0 && pp.B.Cooldown <= 0,
		})
	}

	for _, p := range wd.particles {
		if len(snap.Particles) >= e.limits.MaxParticles {
			break
		}
		snap.Particles = append(snap.Particles, ParticleSnapshot{
			X: p.X, Y: p.Y, Size: p.Size, Color: p.Color, Alpha: clamp(p.Life, 0, 1),
		})
	}

	snap.Leaderboard = wd.appendLeaderboard(snap.Leaderboard, LeaderboardSize)
	snap.Danger = wd.danger
	cam := wd.camera
	snap.Camera = CameraSnapshot{X: cam.X, Y: cam.Y, Zoom: cam.Zoom, ShakeX: cam.ShakeX, ShakeY: cam.ShakeY}

	hud := &snap.HUD
	hud.Kills = wd.KillCount
	hud.Wave = wd.Wave
	hud.WaveProgress = wd.WaveProgress()
	hud.MinionCooldown = wd.MinionCooldown
	hud.EvolutionFlash = wd.EvolutionFlash
	hud.FreezeEffect = wd.freezeEffect
	hud.Survival = wd.SurvivalTime
	hud.BossesAlive = wd.BossesAlive
	hud.NextSkillScore = wd.skills.NextScore
	if p := wd.player; p != nil {
		stage := StageAt(p.EvolutionStage)
		hud.Score = p.Score
		hud.Length = int(p.Length)
		hud.Stage = p.EvolutionStage
		hud.StageName = stage.Name
		hud.StageIcon = stage.Icon
	}
	for _, fx := range wd.ActiveEffects() {
		if len(hud.Effects) >= maxHUDEffects {
			break
		}
		def := fx.Kind.Def()
		hud.Effects = append(hud.Effects, EffectSnapshot{Kind: def.ID, Icon: def.Icon, Remaining: fx.Remaining})
	}
	for _, c := range wd.skills.Choices {
		hud.SkillChoices = append(hud.SkillChoices, c.ID)
	}

	snap.WormCount = len(snap.Worms)
	snap.AliveCount = alive
	snap.FoodCount = len(wd.foods)

	e.snapshotPool.PublishWrite()
}

func (e *Engine) snapshotWorm(snap *GameSnapshot, w *Worm) {
	start := len(snap.Segments)
	room := e.limits.MaxSegments - start
	n := min(len(w.Segments), max(room, 0))
	for i := 0; i < n; i++ {
		s := w.Segments[i]
		snap.Segments = append(snap.Segments, SegmentSnapshot{X: s.X, Y: s.Y, R: w.BodyRadius(i)})
	}
	snap.Worms = append(snap.Worms, WormSnapshot{
		ID:           w.ID,
		Name:         w.Name,
		Color:        w.Color,
		Angle:        w.Angle,
		Length:       w.Length,
		Radius:       w.Radius(),
		Score:        w.Score,
		Kills:        w.Kills,
		Stage:        w.EvolutionStage,
		IsPlayer:     w.IsPlayer,
		IsBoss:       w.IsBoss,
		IsMinion:     w.IsMinion,
		Boosting:     w.Boosting,
		Shielded:     w.Shielded,
		Frozen:       w.Frozen,
		SpeedBoosted: w.SpeedBoosted,
		Magnetized:   w.Magnetized,
		SegStart:     start,
		SegCount:     n,
	})
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// SubscribeEvents relays every logged event to fn.
func (e *Engine) SubscribeEvents(fn EventSubscriber) {
	e.eventLog.Subscribe(fn)
}

// GetEventLogStats returns event log statistics for monitoring
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// GetLimits returns the current resource limits
func (e *Engine) GetLimits() ResourceLimits {
	return e.limits
}

// TickRate returns the configured steps per second.
func (e *Engine) TickRate() int { return e.tickRate }
