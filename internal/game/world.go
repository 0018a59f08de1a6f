package game

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"wormarena/internal/game/pool"
	"wormarena/internal/game/spatial"
)

// RunState is the lifecycle of a single run.
type RunState uint8

const (
	StateMenu RunState = iota
	StatePlaying
	StateGameOver
)

func (s RunState) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StateGameOver:
		return "gameover"
	default:
		return "menu"
	}
}

// WorldOptions configures a World. Zero values fall back to defaults and
// nil hooks to silent implementations.
type WorldOptions struct {
	Width        float64
	Height       float64
	Seed         int64
	CellSize     float64
	MaxParticles int
	RunID        string

	Audio        Audio
	Notifier     Notifier
	Records      *RecordBook
	Achievements *AchievementBook
	Events       EventSink
	OnGameOver   func(RunSummary)
}

// segRef locates a sampled body segment inserted into the segment hash.
type segRef struct {
	worm *Worm
	idx  int
}

// World is the simulation context. It owns every entity collection; all
// cross-entity references are handles. Not safe for concurrent use: the
// Engine serialises access.
type World struct {
	W, H       float64
	RunID      string
	PlayerName string
	ColorIndex int
	State      RunState
	Frame      uint64

	rng          *rand.Rand
	nextSerial   uint64
	maxParticles int

	player    *Worm
	worms     []*Worm
	foods     []*Food
	items     []*Item
	obstacles []*Obstacle
	portals   []*PortalPair
	particles []*Particle
	danger    DangerZone

	foodPool     *pool.Pool[*Food]
	particlePool *pool.Pool[*Particle]
	foodGrid     *spatial.Hash
	segGrid      *spatial.Hash
	segRefs      []segRef

	aim      float64
	boost    bool
	hasInput bool

	KillCount      int
	MinionCooldown float64 // seconds
	SurvivalTime   float64
	Wave           int
	WaveTimer      float64
	BossesAlive    int
	EvolutionFlash float64

	bossKilled   bool
	pendingBoss  bool
	bossAlert    float64
	freezeEffect float64

	skills SkillState
	camera Camera

	audio         Audio
	notifier      Notifier
	records       *RecordBook
	achievements  *AchievementBook
	events        EventSink
	onGameOver    func(RunSummary)
	gameOverFired bool
}

// NewWorld creates an idle world. Call StartRun to populate it.
func NewWorld(opts WorldOptions) *World {
	if opts.Width <= 0 {
		opts.Width = DefaultWorldW
	}
	if opts.Height <= 0 {
		opts.Height = DefaultWorldH
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.CellSize <= 0 {
		opts.CellSize = 100
	}
	if opts.MaxParticles <= 0 {
		opts.MaxParticles = 600
	}
	if opts.Audio == nil {
		opts.Audio = &silentAudio{}
	}
	if opts.Notifier == nil {
		opts.Notifier = silentNotifier{}
	}

	wd := &World{
		W:            opts.Width,
		H:            opts.Height,
		RunID:        opts.RunID,
		rng:          rand.New(rand.NewSource(opts.Seed)),
		maxParticles: opts.MaxParticles,
		foodGrid:     spatial.NewHash(opts.CellSize),
		segGrid:      spatial.NewHash(opts.CellSize),
		skills:       newSkillState(),
		audio:        opts.Audio,
		notifier:     opts.Notifier,
		records:      opts.Records,
		achievements: opts.Achievements,
		events:       opts.Events,
		onGameOver:   opts.OnGameOver,
	}
	wd.foodPool = pool.New(func() *Food { return &Food{} }, (*Food).reset)
	wd.particlePool = pool.New(func() *Particle { return &Particle{} }, (*Particle).reset)
	wd.camera = Camera{X: wd.W / 2, Y: wd.H / 2, Zoom: 1, TargetZoom: 1}
	return wd
}

// Center returns the world centre.
func (wd *World) Center() Vec2 { return Vec2{wd.W / 2, wd.H / 2} }

func (wd *World) serial() uint64 {
	wd.nextSerial++
	return wd.nextSerial
}

func (wd *World) emit(t EventType, subject string, payload interface{}) {
	if wd.events != nil {
		wd.events(t, subject, payload)
	}
}

func (wd *World) randPos(margin float64) Vec2 {
	return Vec2{randRange(wd.rng, margin, wd.W-margin), randRange(wd.rng, margin, wd.H-margin)}
}

// StartRun resets every collection and spawns the player, the initial AI
// population, food and items.
func (wd *World) StartRun(name string, colorIdx int) {
	if name == "" {
		name = "You"
	}
	wd.PlayerName = name
	wd.ColorIndex = colorIdx

	for _, f := range wd.foods {
		f.alive = false
		wd.foodPool.Release(f)
	}
	for _, p := range wd.particles {
		wd.particlePool.Release(p)
	}
	wd.foods = wd.foods[:0]
	wd.particles = wd.particles[:0]
	wd.items = wd.items[:0]
	wd.obstacles = wd.obstacles[:0]
	wd.portals = wd.portals[:0]
	wd.danger = DangerZone{}

	wd.KillCount = 0
	wd.MinionCooldown = 0
	wd.SurvivalTime = 0
	wd.Wave = 0
	wd.WaveTimer = 0
	wd.BossesAlive = 0
	wd.EvolutionFlash = 0
	wd.bossKilled = false
	wd.pendingBoss = false
	wd.bossAlert = 0
	wd.freezeEffect = 0
	wd.skills = newSkillState()
	wd.gameOverFired = false
	wd.Frame = 0
	wd.hasInput = false
	wd.boost = false

	if wd.records != nil {
		wd.records.Load()
		wd.records.ClearNewRecords()
		wd.records.IncrementGameCount()
	}
	if wd.achievements != nil {
		wd.achievements.Load()
	}

	c := wd.Center()
	wd.player = newWorm(wd.rng, wd.serial(), c.X, c.Y, colorIdx, name)
	wd.player.ID = "player"
	wd.player.IsPlayer = true
	wd.aim = wd.player.Angle
	wd.worms = append(wd.worms[:0], wd.player)

	for i := 0; i < AICount; i++ {
		wd.spawnAI()
	}
	for i := 0; i < FoodCount; i++ {
		wd.spawnFood(nil, PickFoodTier(wd.rng))
	}
	for i := 0; i < ItemCount; i++ {
		wd.spawnItem()
	}

	wd.reindexFood()

	wd.camera = Camera{X: c.X, Y: c.Y, Zoom: 1, TargetZoom: 1}
	wd.State = StatePlaying
	wd.audio.StartAmbience()

	wd.emit(EventTypeRunStart, wd.player.ID, RunStartPayload{
		RunID:      wd.RunID,
		PlayerName: name,
		ColorIndex: colorIdx,
		WorldW:     wd.W,
		WorldH:     wd.H,
	})
}

// SetInput records the player's aim (radians) and boost flag for the next
// step.
func (wd *World) SetInput(aim float64, boosting bool) {
	wd.aim = aim
	wd.boost = boosting
	wd.hasInput = true
}

// Paused reports whether the loop is halted on a skill choice.
func (wd *World) Paused() bool { return wd.skills.Pending() }

// Step advances the simulation by one frame. dt is clamped to MaxStep.
func (wd *World) Step(dt float64) {
	if wd.State != StatePlaying || wd.skills.Pending() {
		return
	}
	if dt > MaxStep {
		dt = MaxStep
	}
	if dt < 0 {
		dt = 0
	}
	wd.Frame++

	p := wd.player
	if p != nil && p.alive && wd.hasInput {
		p.TargetAngle = wd.aim
		if wd.boost && !p.Boosting && p.Length > MinBoostLength {
			wd.audio.Play(CueBoost)
		}
		p.Boosting = wd.boost
	}

	for _, w := range wd.worms {
		if !w.alive {
			continue
		}
		if !w.IsPlayer {
			wd.updateAI(w, dt)
		}
		w.update(dt, wd)
		if w.alive && !w.IsMinion {
			wd.evolve(w)
		}
	}

	wd.rebuildGrids()

	wd.checkCollisions()
	wd.checkObstacleCollisions()
	wd.checkPortalTeleport()

	for _, pp := range wd.portals {
		pp.update(dt)
	}
	wd.updateDangerZone(dt)

	wd.respawnFood()
	wd.respawnItems()
	wd.respawnAI()

	wd.compact()
	wd.reindexFood()
	wd.updateParticles(dt)

	wd.camera.update(wd.player, wd.rng)
	if wd.EvolutionFlash > 0 {
		wd.EvolutionFlash = math.Max(0, wd.EvolutionFlash-dt*3)
	}
	if wd.MinionCooldown > 0 {
		wd.MinionCooldown = math.Max(0, wd.MinionCooldown-dt)
	}
	if wd.freezeEffect > 0 {
		wd.freezeEffect = math.Max(0, wd.freezeEffect-dt)
	}
	wd.SurvivalTime += dt

	wd.updateWave(dt)

	if wd.State != StatePlaying {
		return
	}

	if wd.Frame%60 == 0 && wd.records != nil {
		if wd.records.CheckBroken(wd.progress()) {
			wd.notifier.Notify("🏆 New record!", "#ffdd44", EmphasisNormal)
			wd.emit(EventTypeRecord, "player", RecordPayload{Fields: wd.records.NewRecords()})
		}
	}
	if wd.Frame%30 == 0 && wd.achievements != nil {
		for _, a := range wd.achievements.Check(wd.progress()) {
			wd.notifier.Notify(fmt.Sprintf("🏅 Achievement: %s!", a.Name), "#44ddff", EmphasisNormal)
			wd.audio.Play(CueAchievement)
			wd.emit(EventTypeAchievement, "player", AchievementPayload{ID: a.ID, Name: a.Name, Icon: a.Icon})
		}
	}

	if p != nil && p.alive && wd.skills.trigger(p.Score, wd.rng) {
		ids := make([]string, len(wd.skills.Choices))
		for i, c := range wd.skills.Choices {
			ids[i] = c.ID
		}
		wd.emit(EventTypeSkillOffer, "player", SkillOfferPayload{Choices: ids, Score: p.Score})
	}
}

func (wd *World) evolve(w *Worm) {
	evolved, from, to := checkEvolution(w)
	if !evolved || !w.IsPlayer {
		return
	}
	stage := StageAt(to)
	wd.notifier.Notify(fmt.Sprintf("✨ Evolved into %s %s!", stage.Icon, stage.Name), "#ffdd44", EmphasisLarge)
	wd.audio.Play(CueEvolution)
	h := w.Head()
	for j := 0; j < 30; j++ {
		c := evolutionColors[wd.rng.Intn(len(evolutionColors))]
		wd.emitParticle(h.X+(wd.rng.Float64()-0.5)*20, h.Y+(wd.rng.Float64()-0.5)*20, c, 3+wd.rng.Float64()*3)
	}
	wd.EvolutionFlash = 1
	wd.emit(EventTypeEvolution, w.ID, EvolutionPayload{From: from, To: to, Name: stage.Name})
}

var evolutionColors = []string{"#ffdd44", "#ff8844", "#ffaa00", "#ffffff"}

// segmentStride samples fewer body segments for longer worms.
func segmentStride(n int) int {
	switch {
	case n < 60:
		return 3
	case n < 150:
		return 4
	case n < 300:
		return 5
	default:
		return 6
	}
}

func (wd *World) rebuildGrids() {
	wd.reindexFood()

	wd.segGrid.Clear()
	wd.segRefs = wd.segRefs[:0]
	for _, w := range wd.worms {
		if !w.alive {
			continue
		}
		stride := segmentStride(len(w.Segments))
		for i := 5; i < len(w.Segments); i += stride {
			s := w.Segments[i]
			wd.segGrid.Insert(uint32(len(wd.segRefs)), s.X, s.Y)
			wd.segRefs = append(wd.segRefs, segRef{worm: w, idx: i})
		}
	}
}

// reindexFood rebuilds the food hash. Entries are indices into wd.foods, so
// it must also run after compaction reorders the slice.
func (wd *World) reindexFood() {
	wd.foodGrid.Clear()
	for i, f := range wd.foods {
		if f.alive {
			wd.foodGrid.Insert(uint32(i), f.X, f.Y)
		}
	}
}

// compact drops dead entities in place and returns dead food to the pool.
// The player is kept even when dead so the results screen can read it.
func (wd *World) compact() {
	n := 0
	for _, f := range wd.foods {
		if f.alive {
			wd.foods[n] = f
			n++
		} else {
			wd.foodPool.Release(f)
		}
	}
	clear(wd.foods[n:])
	wd.foods = wd.foods[:n]

	n = 0
	for _, it := range wd.items {
		if it.alive {
			wd.items[n] = it
			n++
		}
	}
	clear(wd.items[n:])
	wd.items = wd.items[:n]

	n = 0
	for _, w := range wd.worms {
		if w.alive || w.IsPlayer {
			wd.worms[n] = w
			n++
		}
	}
	clear(wd.worms[n:])
	wd.worms = wd.worms[:n]
}

func (wd *World) updateParticles(dt float64) {
	n := 0
	for _, p := range wd.particles {
		if p.update(dt) {
			wd.particles[n] = p
			n++
		} else {
			wd.particlePool.Release(p)
		}
	}
	clear(wd.particles[n:])
	wd.particles = wd.particles[:n]
}

// emitParticle spawns a pooled particle unless the hard cap is reached.
func (wd *World) emitParticle(x, y float64, color string, size float64) {
	if len(wd.particles) >= wd.maxParticles {
		return
	}
	p := wd.particlePool.Acquire()
	p.launch(wd.rng, x, y, color, size)
	wd.particles = append(wd.particles, p)
}

func (wd *World) spawnFood(pos *Vec2, tier FoodTier) *Food {
	f := wd.foodPool.Acquire()
	f.place(wd.rng, wd.serial(), wd.W, wd.H, pos, tier)
	wd.foods = append(wd.foods, f)
	return f
}

// gameOver ends the run. It runs at most once per run.
func (wd *World) gameOver() {
	if wd.gameOverFired {
		return
	}
	wd.gameOverFired = true
	wd.State = StateGameOver
	wd.skills.Choices = nil
	wd.audio.StopAmbience()
	wd.audio.Play(CueDeath)

	var broken []string
	if wd.records != nil {
		wd.records.CheckBroken(wd.progress())
		wd.records.Save()
		broken = wd.records.NewRecords()
	}

	summary := wd.Summary()
	summary.NewRecords = broken
	wd.emit(EventTypeGameOver, "player", summary)
	if wd.onGameOver != nil {
		wd.onGameOver(summary)
	}
}

// Summary reports the current run's results.
func (wd *World) Summary() RunSummary {
	s := RunSummary{
		RunID:        wd.RunID,
		PlayerName:   wd.PlayerName,
		Kills:        wd.KillCount,
		Wave:         wd.Wave,
		SurvivalTime: wd.SurvivalTime,
		Survival:     FormatTime(wd.SurvivalTime),
	}
	if p := wd.player; p != nil {
		s.Score = p.Score
		s.Length = int(p.Length)
		s.Stage = p.EvolutionStage
		s.StageIcon = StageAt(p.EvolutionStage).Icon
	}
	return s
}

// ChooseSkill resolves a pending skill offer by index and resumes the loop.
func (wd *World) ChooseSkill(i int) bool {
	if !wd.skills.Pending() || i < 0 || i >= len(wd.skills.Choices) {
		return false
	}
	def := wd.skills.Choices[i]
	wd.skills.Choices = nil
	if !wd.skills.apply(def.ID) {
		return false
	}
	wd.audio.Play(CueSkillSelect)
	wd.notifier.Notify(fmt.Sprintf("%s %s Lv.%d", def.Icon, def.Name, wd.skills.level(def.ID)), "#ffdd44", EmphasisNormal)
	wd.emit(EventTypeSkillSelect, "player", SkillSelectPayload{ID: def.ID, Level: wd.skills.level(def.ID)})
	return true
}

// ToggleMute flips audio mute and returns the new state.
func (wd *World) ToggleMute() bool { return wd.audio.ToggleMute() }

// Player returns the player's worm (possibly dead) or nil before a run.
func (wd *World) Player() *Worm { return wd.player }

// Worms returns the live worm slice. Callers must not retain it.
func (wd *World) Worms() []*Worm { return wd.worms }

// Foods returns the live food slice. Callers must not retain it.
func (wd *World) Foods() []*Food { return wd.foods }

func (wd *World) Items() []*Item                 { return wd.items }
func (wd *World) Obstacles() []*Obstacle         { return wd.obstacles }
func (wd *World) Portals() []*PortalPair         { return wd.portals }
func (wd *World) Particles() []*Particle         { return wd.particles }
func (wd *World) Danger() DangerZone             { return wd.danger }
func (wd *World) Camera() Camera                 { return wd.camera }
func (wd *World) Skills() *SkillState            { return &wd.skills }
func (wd *World) Records() *RecordBook           { return wd.records }
func (wd *World) Achievements() *AchievementBook { return wd.achievements }

// GridStats exposes spatial hash counters for the debug endpoints.
func (wd *World) GridStats() (food, segments spatial.HashStats) {
	return wd.foodGrid.Stats(), wd.segGrid.Stats()
}

// PoolStats reports pooled object counts: free food, free particles.
func (wd *World) PoolStats() (foodFree, particleFree int) {
	return wd.foodPool.Size(), wd.particlePool.Size()
}

// LeaderboardEntry is one row of the in-run ranking.
type LeaderboardEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Length   int    `json:"length"`
	IsPlayer bool   `json:"isPlayer"`
	IsBoss   bool   `json:"isBoss"`
}

// Leaderboard returns the top n alive non-minion worms by score.
func (wd *World) Leaderboard(n int) []LeaderboardEntry {
	return wd.appendLeaderboard(make([]LeaderboardEntry, 0, n), n)
}

// appendLeaderboard appends the top n rows to dst by insertion, so a
// pre-sized dst is filled without allocating. Ties keep worm order.
func (wd *World) appendLeaderboard(dst []LeaderboardEntry, n int) []LeaderboardEntry {
	base := len(dst)
	for _, w := range wd.worms {
		if !w.alive || w.IsMinion {
			continue
		}
		i := len(dst)
		for i > base && dst[i-1].Score < w.Score {
			i--
		}
		if i-base >= n {
			continue
		}
		if len(dst)-base < n {
			dst = append(dst, LeaderboardEntry{})
		}
		copy(dst[i+1:], dst[i:len(dst)-1])
		dst[i] = LeaderboardEntry{
			ID: w.ID, Name: w.Name, Score: w.Score, Length: int(w.Length),
			IsPlayer: w.IsPlayer, IsBoss: w.IsBoss,
		}
	}
	return dst
}

// ActiveEffect is a running power-up on the player, for the HUD.
type ActiveEffect struct {
	Kind      ItemKind
	Remaining float64 // fraction of ItemDuration left
}

// ActiveEffects lists the player's running item effects.
func (wd *World) ActiveEffects() []ActiveEffect {
	p := wd.player
	if p == nil || !p.alive {
		return nil
	}
	var out []ActiveEffect
	add := func(k ItemKind, t float64) {
		if t > 0 {
			out = append(out, ActiveEffect{Kind: k, Remaining: math.Min(1, t/ItemDuration)})
		}
	}
	add(ItemSpeed, p.SpeedTimer)
	add(ItemShield, p.ShieldTimer)
	add(ItemMagnet, p.MagnetTimer)
	add(ItemFreeze, wd.freezeEffect)
	return out
}

// ProgressView is the read-only state that records and achievements are
// evaluated against.
type ProgressView struct {
	HasPlayer      bool
	PlayerScore    int
	PlayerLength   float64
	PlayerStage    int
	KillCount      int
	SurvivalTime   float64
	Wave           int
	BossKilled     bool
	SkillsSelected int
}

func (wd *World) progress() ProgressView {
	v := ProgressView{
		KillCount:      wd.KillCount,
		SurvivalTime:   wd.SurvivalTime,
		Wave:           wd.Wave,
		BossKilled:     wd.bossKilled,
		SkillsSelected: len(wd.skills.Selected),
	}
	if p := wd.player; p != nil {
		v.HasPlayer = true
		v.PlayerScore = p.Score
		v.PlayerLength = p.Length
		v.PlayerStage = p.EvolutionStage
	}
	return v
}
