package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"wormarena/internal/config"
	"wormarena/internal/game"
	"wormarena/internal/store"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// MockEngine implements EngineInterface for testing
type MockEngine struct {
	mu sync.Mutex

	snap     game.GameSnapshot
	offer    []game.SkillDef
	muted    bool
	minions  bool
	lastName string
	lastCol  int
	aim      float64
	boost    bool
	inputs   int
	chosen   int
	summary  *game.RunSummary
}

func NewMockEngine() *MockEngine {
	return &MockEngine{
		snap: game.GameSnapshot{
			Sequence: 1,
			RunID:    "run-1",
			State:    "playing",
			HUD: game.HUDSnapshot{
				Score:     120,
				Length:    42,
				Wave:      2,
				StageName: "Larva",
				Effects:   []game.EffectSnapshot{{Kind: "shield", Icon: "🛡️", Remaining: 0.5}},
			},
			AliveCount: 9,
		},
		minions: true,
		chosen:  -1,
	}
}

// mockCalls is what the handlers passed to the engine.
type mockCalls struct {
	name   string
	color  int
	aim    float64
	boost  bool
	inputs int
	chosen int
}

func (m *MockEngine) calls() mockCalls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return mockCalls{m.lastName, m.lastCol, m.aim, m.boost, m.inputs, m.chosen}
}

func (m *MockEngine) setOffer(offer []game.SkillDef) {
	m.mu.Lock()
	m.offer = offer
	m.mu.Unlock()
}

func (m *MockEngine) setSummary(s *game.RunSummary) {
	m.mu.Lock()
	m.summary = s
	m.mu.Unlock()
}

func (m *MockEngine) StartRun(name string, colorIdx int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastName, m.lastCol = name, colorIdx
	return "run-2"
}

func (m *MockEngine) SetInput(aim float64, boosting bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aim, m.boost = aim, boosting
	m.inputs++
}

func (m *MockEngine) SpawnMinions() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := m.minions
	m.minions = false
	return ok
}

func (m *MockEngine) ChooseSkill(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.offer) {
		return false
	}
	m.chosen = i
	m.offer = nil
	return true
}

func (m *MockEngine) ToggleMute() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = !m.muted
	return m.muted
}

func (m *MockEngine) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

func (m *MockEngine) GetSnapshot() *game.GameSnapshot { return &m.snap }

func (m *MockEngine) Stats() game.EngineStats {
	return game.EngineStats{RunID: m.snap.RunID, State: m.snap.State, Frame: 99, Worms: 9}
}

func (m *MockEngine) Summary() game.RunSummary {
	return game.RunSummary{RunID: m.snap.RunID, NewRecords: []string{game.RecordHighScore}}
}

func (m *MockEngine) LastSummary() (game.RunSummary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.summary == nil {
		return game.RunSummary{}, false
	}
	return *m.summary, true
}

func (m *MockEngine) Leaderboard(n int) []game.LeaderboardEntry {
	out := make([]game.LeaderboardEntry, 0, n)
	for i := 0; i < n && i < 3; i++ {
		out = append(out, game.LeaderboardEntry{ID: "w", Score: 100 - i})
	}
	return out
}

func (m *MockEngine) SkillOffer() []game.SkillDef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]game.SkillDef(nil), m.offer...)
}

func (m *MockEngine) Records() store.Records {
	return store.Records{HighScore: 500, MaxLength: 80, LongestSurvival: 125, TotalGames: 4}
}

func (m *MockEngine) Achievements() []game.AchievementStatus {
	out := make([]game.AchievementStatus, len(game.AchievementDefs))
	for i, def := range game.AchievementDefs {
		out[i] = game.AchievementStatus{AchievementDef: def, Unlocked: i == 0}
	}
	return out
}

func (m *MockEngine) Notifications() []game.Notification {
	return []game.Notification{{Seq: 1, Text: "hello"}}
}

func generousLimits() *RateLimitConfig {
	b := RateBudget{PerSecond: 1000, Burst: 1000}
	return &RateLimitConfig{Input: b, Command: b, Query: b, IdleTTL: time.Hour}
}

func testRouter(eng EngineInterface) *httptest.Server {
	return httptest.NewServer(NewRouter(RouterConfig{
		Engine:         eng,
		DisableLogging: true,
		RateLimitConfig: generousLimits(),
	}))
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, v interface{}) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if v != nil {
		json.NewDecoder(resp.Body).Decode(v)
	}
	return resp.StatusCode
}

// ============================================================================
// Router Tests
// ============================================================================

func TestNewRouterHasNoSideEffects(t *testing.T) {
	router := NewRouter(RouterConfig{
		Engine: NewMockEngine(),
		RateLimitConfig: generousLimits(),
	})
	if router == nil {
		t.Fatal("Router should not be nil")
	}
}

func TestAPIGetState(t *testing.T) {
	eng := NewMockEngine()
	eng.setOffer([]game.SkillDef{{ID: "speed", Name: "Swift"}, {ID: "magnet", Name: "Pull"}})
	ts := testRouter(eng)
	defer ts.Close()

	var state map[string]interface{}
	if code := getJSON(t, ts.URL+"/api/state", &state); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	if state["runId"] != "run-1" || state["state"] != "playing" {
		t.Errorf("Unexpected run fields %v / %v", state["runId"], state["state"])
	}
	if state["score"].(float64) != 120 || state["length"].(float64) != 42 {
		t.Errorf("Unexpected HUD values score=%v length=%v", state["score"], state["length"])
	}
	if choices := state["skillChoices"].([]interface{}); len(choices) != 2 {
		t.Errorf("Expected 2 skill choices, got %d", len(choices))
	}
	if fx := state["effects"].([]interface{}); len(fx) != 1 {
		t.Errorf("Expected 1 effect, got %d", len(fx))
	}
	if _, ok := state["summary"]; ok {
		t.Error("No summary while the run is live")
	}

	eng.setSummary(&game.RunSummary{RunID: "run-1", Score: 120})
	getJSON(t, ts.URL+"/api/state", &state)
	if _, ok := state["summary"]; !ok {
		t.Error("Expected a summary after game over")
	}
}

func TestAPIQueries(t *testing.T) {
	ts := testRouter(NewMockEngine())
	defer ts.Close()

	var stats statsResponse
	getJSON(t, ts.URL+"/api/stats", &stats)
	if stats.Frame != 99 || stats.Worms != 9 {
		t.Errorf("Unexpected stats %+v", stats.EngineStats)
	}
	if stats.RateLimit["allowed"] == 0 {
		t.Error("Expected the stats request counted by the limiter")
	}

	var records map[string]interface{}
	getJSON(t, ts.URL+"/api/records", &records)
	if records["highScore"].(float64) != 500 || records["longestSurvival"] != "2:05" {
		t.Errorf("Unexpected records %v", records)
	}
	if nr := records["newRecords"].([]interface{}); len(nr) != 1 {
		t.Errorf("Expected the run's new records, got %v", nr)
	}

	var ach struct {
		Unlocked     int                      `json:"unlocked"`
		Total        int                      `json:"total"`
		Achievements []map[string]interface{} `json:"achievements"`
	}
	getJSON(t, ts.URL+"/api/achievements", &ach)
	if ach.Unlocked != 1 || ach.Total != len(game.AchievementDefs) || len(ach.Achievements) != ach.Total {
		t.Errorf("Unexpected achievements %d/%d", ach.Unlocked, ach.Total)
	}
	if ach.Achievements[0]["id"] == "" || ach.Achievements[0]["unlocked"] != true {
		t.Errorf("Unexpected first achievement %v", ach.Achievements[0])
	}
}

func TestAPILeaderboard(t *testing.T) {
	ts := testRouter(NewMockEngine())
	defer ts.Close()

	tests := []struct {
		query string
		code  int
		rows  int
	}{
		{"", http.StatusOK, 3},
		{"?n=2", http.StatusOK, 2},
		{"?n=0", http.StatusBadRequest, 0},
		{"?n=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		resp, err := http.Get(ts.URL + "/api/leaderboard" + tt.query)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if resp.StatusCode != tt.code {
			t.Errorf("%q: expected %d, got %d", tt.query, tt.code, resp.StatusCode)
		}
		if tt.code == http.StatusOK {
			var rows []game.LeaderboardEntry
			json.NewDecoder(resp.Body).Decode(&rows)
			if len(rows) != tt.rows {
				t.Errorf("%q: expected %d rows, got %d", tt.query, tt.rows, len(rows))
			}
		}
		resp.Body.Close()
	}
}

// ============================================================================
// Control Tests
// ============================================================================

func TestAPIRunStart(t *testing.T) {
	eng := NewMockEngine()
	ts := testRouter(eng)
	defer ts.Close()

	var reply map[string]string
	if code := postJSON(t, ts.URL+"/api/run/start", `{"name":"  Wiggles  ","color":3}`, &reply); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if reply["runId"] != "run-2" {
		t.Errorf("Expected run id, got %v", reply)
	}
	if c := eng.calls(); c.name != "Wiggles" || c.color != 3 {
		t.Errorf("Expected trimmed name and colour, got %q %d", c.name, c.color)
	}

	if code := postJSON(t, ts.URL+"/api/run/start", "", nil); code != http.StatusOK || eng.calls().name != defaultName {
		t.Errorf("Empty body should start with defaults, got %d %q", code, eng.calls().name)
	}

	tests := []struct {
		body string
		code int
	}{
		{`{"color":99}`, http.StatusBadRequest},
		{`{"color":-1}`, http.StatusBadRequest},
		{`{"name":`, http.StatusBadRequest},
		{`{"name":` + `"` + strings.Repeat("x", 2000) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		if code := postJSON(t, ts.URL+"/api/run/start", tt.body, nil); code != tt.code {
			t.Errorf("Body %.20q: expected %d, got %d", tt.body, tt.code, code)
		}
	}
}

func TestAPIRunInput(t *testing.T) {
	eng := NewMockEngine()
	ts := testRouter(eng)
	defer ts.Close()

	if code := postJSON(t, ts.URL+"/api/run/input", `{"aim":1.5,"boost":true}`, nil); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if c := eng.calls(); c.aim != 1.5 || !c.boost || c.inputs != 1 {
		t.Errorf("Input not applied: aim=%v boost=%v", c.aim, c.boost)
	}

	if code := postJSON(t, ts.URL+"/api/run/input", `{"aim":"left"}`, nil); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad aim, got %d", code)
	}
	if eng.calls().inputs != 1 {
		t.Error("Rejected input must not reach the engine")
	}
}

func TestAPIRunMinionsSkillMute(t *testing.T) {
	eng := NewMockEngine()
	ts := testRouter(eng)
	defer ts.Close()

	var spawned map[string]bool
	postJSON(t, ts.URL+"/api/run/minions", "", &spawned)
	if !spawned["spawned"] {
		t.Error("Expected minions spawned")
	}
	postJSON(t, ts.URL+"/api/run/minions", "", &spawned)
	if spawned["spawned"] {
		t.Error("Expected cooldown on the second summon")
	}

	if code := postJSON(t, ts.URL+"/api/run/skill", `{"index":0}`, nil); code != http.StatusConflict {
		t.Errorf("Expected 409 without an offer, got %d", code)
	}
	eng.setOffer([]game.SkillDef{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	if code := postJSON(t, ts.URL+"/api/run/skill", `{"index":2}`, nil); code != http.StatusOK || eng.calls().chosen != 2 {
		t.Errorf("Expected skill 2 chosen, got %d (chosen %d)", code, eng.calls().chosen)
	}

	var muted map[string]bool
	postJSON(t, ts.URL+"/api/audio/mute", "", &muted)
	if !muted["muted"] {
		t.Error("Expected muted after toggle")
	}
	postJSON(t, ts.URL+"/api/audio/mute", "", &muted)
	if muted["muted"] {
		t.Error("Expected unmuted after second toggle")
	}
}

func TestAPIMinimap(t *testing.T) {
	e := game.NewEngine(game.EngineOptions{Seed: 3})
	e.StartRun("tester", 0)
	ts := testRouter(e)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/minimap.png?size=96")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Expected image/png, got %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 96 {
		t.Errorf("Expected 96px minimap, got %v", img.Bounds())
	}

	if code := getJSON(t, ts.URL+"/api/minimap.png?size=5000", nil); code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an oversized map, got %d", code)
	}
}

// ============================================================================
// Middleware Tests
// ============================================================================

func TestAPICORSHeaders(t *testing.T) {
	router := NewRouter(RouterConfig{
		Engine:         NewMockEngine(),
		DisableLogging: true,
		Origins:        NewOriginChecker([]string{"http://test.example.com"}),
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	req, _ := http.NewRequest("GET", ts.URL+"/api/state", nil)
	req.Header.Set("Origin", "http://test.example.com")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://test.example.com" {
		t.Errorf("Expected Access-Control-Allow-Origin 'http://test.example.com', got '%s'", got)
	}
}

func TestAPIRateLimiting(t *testing.T) {
	router := NewRouter(RouterConfig{
		Engine: NewMockEngine(),
		RateLimitConfig: &RateLimitConfig{
			Input:   RateBudget{PerSecond: 1000, Burst: 1000},
			Command: RateBudget{PerSecond: 1, Burst: 1},
			Query:   RateBudget{PerSecond: 1, Burst: 2},
			IdleTTL: time.Hour,
		},
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	// Frame-rate steering must not spend the query budget.
	for i := 0; i < 60; i++ {
		if code := postJSON(t, ts.URL+"/api/run/input", `{"aim":0.5}`, nil); code != http.StatusOK {
			t.Fatalf("Input %d: expected 200, got %d", i, code)
		}
	}

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"first query", "GET", "/api/state", http.StatusOK},
		{"second query", "GET", "/api/leaderboard", http.StatusOK},
		{"query burst spent", "GET", "/api/state", http.StatusTooManyRequests},
		{"minimap shares the query bucket", "GET", "/api/minimap.png", http.StatusTooManyRequests},
		{"command has its own bucket", "POST", "/api/audio/mute", http.StatusOK},
		{"command burst spent", "POST", "/api/audio/mute", http.StatusTooManyRequests},
		{"input still flows", "POST", "/api/run/input", http.StatusOK},
	}

	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(`{"aim":1}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s: request failed: %v", tt.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, resp.StatusCode)
		}
		if tt.want == http.StatusTooManyRequests && resp.Header.Get("Retry-After") != "1" {
			t.Errorf("%s: expected Retry-After 1, got %q", tt.name, resp.Header.Get("Retry-After"))
		}
	}
}

func TestRouteLimiterBuckets(t *testing.T) {
	clock := time.Unix(1000, 0)
	rl := NewRouteLimiter(RateLimitConfig{
		Query:   RateBudget{PerSecond: 2, Burst: 1},
		IdleTTL: time.Minute,
	})
	rl.now = func() time.Time { return clock }

	if ok, _ := rl.Reserve("1.1.1.1", ClassQuery); !ok {
		t.Fatal("Expected the first query allowed")
	}
	ok, wait := rl.Reserve("1.1.1.1", ClassQuery)
	if ok || wait != 500*time.Millisecond {
		t.Errorf("Expected refusal with a 500ms wait, got ok=%v wait=%v", ok, wait)
	}
	if ok, _ := rl.Reserve("2.2.2.2", ClassQuery); !ok {
		t.Error("Another IP should have its own bucket")
	}
	if ok, _ := rl.Reserve("1.1.1.1", ClassInput); !ok {
		t.Error("Input should not share the query bucket")
	}

	clock = clock.Add(500 * time.Millisecond)
	if ok, _ := rl.Reserve("1.1.1.1", ClassQuery); !ok {
		t.Error("Expected a token after the refill interval")
	}

	if rl.Budget(ClassCommand) != config.DefaultRateLimits().Command {
		t.Errorf("Expected the default command budget, got %+v", rl.Budget(ClassCommand))
	}

	stats := rl.Stats()
	if stats["query.allowed"] != 3 || stats["query.rejected"] != 1 || stats["input.allowed"] != 1 {
		t.Errorf("Unexpected counters %v", stats)
	}
	if stats["allowed"] != 4 || stats["rejected"] != 1 {
		t.Errorf("Unexpected totals %v", stats)
	}

	if rl.Buckets() != 3 {
		t.Fatalf("Expected 3 buckets, got %d", rl.Buckets())
	}
	clock = clock.Add(2 * time.Minute)
	rl.Reserve("3.3.3.3", ClassQuery)
	if rl.Buckets() != 1 {
		t.Errorf("Expected idle buckets swept, %d left", rl.Buckets())
	}
}

func TestConnLimiter(t *testing.T) {
	cl := NewConnLimiter(2)

	if !cl.Acquire("a") || !cl.Acquire("a") {
		t.Fatal("Expected two slots")
	}
	if cl.Acquire("a") {
		t.Error("Third connection should be refused")
	}
	if !cl.Acquire("b") {
		t.Error("Another IP has its own slots")
	}

	cl.Release("a")
	if cl.Count("a") != 1 || !cl.Acquire("a") {
		t.Error("Release should free a slot")
	}

	cl.Release("b")
	cl.Release("b")
	if cl.Count("b") != 0 {
		t.Errorf("Count must not go negative, got %d", cl.Count("b"))
	}
	if s := cl.Stats(); s["rejected"] != 1 || s["ips"] != 1 {
		t.Errorf("Unexpected stats %v", s)
	}
}

func TestMatchOrigin(t *testing.T) {
	tests := []struct {
		pattern string
		origin  string
		want    bool
	}{
		{"http://localhost:*", "http://localhost:3000", true},
		{"http://localhost:*", "http://localhost.evil.com", false},
		{"https://*.example.com", "https://play.example.com", true},
		{"https://*.example.com", "https://example.com", false},
		{"https://game.example.com", "https://game.example.com", true},
		{"*", "https://anything.test", true},
	}

	for _, tt := range tests {
		if got := matchOrigin(tt.pattern, tt.origin); got != tt.want {
			t.Errorf("matchOrigin(%q, %q): expected %v", tt.pattern, tt.origin, tt.want)
		}
	}

	oc := NewOriginChecker(nil)
	if !oc.Allowed("") || !oc.Allowed("http://127.0.0.1:8080") || oc.Allowed("https://evil.test") {
		t.Error("Default checker should allow loopback and non-browser clients only")
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Wiggles", "Wiggles"},
		{"   ", defaultName},
		{"a\x00b\nc", "abc"},
		{"abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnop"},
		{"ééééééééééééééééé", "éééééééééééééééé"},
	}

	for _, tt := range tests {
		if got := cleanName(tt.in); got != tt.want {
			t.Errorf("cleanName(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestApplyCommandUnknown(t *testing.T) {
	if _, err := applyCommand(NewMockEngine(), "dance", nil); err == nil {
		t.Error("Expected an error for an unknown command")
	}
}

func TestEncodeStateRoundTrip(t *testing.T) {
	e := game.NewEngine(game.EngineOptions{Seed: 9})
	e.StartRun("tester", 1)
	snap := e.GetSnapshot()

	data, err := EncodeState(snap)
	if err != nil {
		t.Fatalf("EncodeState: %v", err)
	}
	got, err := DecodeState(data)
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}

	if got.RunID != snap.RunID || got.Sequence != snap.Sequence {
		t.Errorf("Header mismatch: %s/%d vs %s/%d", got.RunID, got.Sequence, snap.RunID, snap.Sequence)
	}
	if len(got.Worms) != len(snap.Worms) || len(got.Segments) != len(snap.Segments) {
		t.Errorf("Expected %d worms and %d segments, got %d and %d",
			len(snap.Worms), len(snap.Segments), len(got.Worms), len(got.Segments))
	}
	p, ok := got.Player()
	if !ok || p.Name != "tester" || len(got.Body(p)) != 20 {
		t.Errorf("Player did not survive the round trip: %+v", p)
	}
	if len(got.Leaderboard) != game.LeaderboardSize || got.Leaderboard[0].Name == "" {
		t.Errorf("Unexpected leaderboard %+v", got.Leaderboard)
	}

	js, _ := json.Marshal(snap)
	if len(data) >= len(js) {
		t.Errorf("Expected msgpack frame smaller than JSON: %d vs %d", len(data), len(js))
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"remote addr", nil, "10.0.0.1:5555", "10.0.0.1"},
		{"forwarded", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.1:5555", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "10.0.0.1:5555", "5.6.7.8"},
		{"junk forwarded hop skipped", map[string]string{"X-Forwarded-For": "unknown, 9.9.9.9"}, "10.0.0.1:5555", "9.9.9.9"},
		{"ipv6 remote", nil, "[::1]:5555", "::1"},
		{"mapped ipv4", map[string]string{"X-Real-IP": "::ffff:7.7.7.7"}, "10.0.0.1:5555", "7.7.7.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDebugHandler(t *testing.T) {
	ts := httptest.NewServer(NewDebugHandler(ObservabilityConfig{Enabled: true}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body := new(bytes.Buffer)
	body.ReadFrom(resp.Body)
	resp.Body.Close()
	if body.String() != "OK" {
		t.Errorf("Expected OK, got %q", body.String())
	}

	RecordTick(time.Millisecond, &game.GameSnapshot{AliveCount: 3})
	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body.Reset()
	body.ReadFrom(resp.Body)
	resp.Body.Close()
	if !strings.Contains(body.String(), "wormarena_worms_alive 3") {
		t.Error("Expected the worm gauge in /metrics")
	}

	authed := httptest.NewServer(NewDebugHandler(ObservabilityConfig{BasicAuthUser: "u", BasicAuthPass: "p"}))
	defer authed.Close()
	if code := getJSON(t, authed.URL+"/health", nil); code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %d", code)
	}
}

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:6060", true},
		{"localhost:7000", true},
		{"[::1]:6060", true},
		{"0.0.0.0:6060", false},
		{":6060", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		if got := isLoopback(tt.addr); got != tt.want {
			t.Errorf("isLoopback(%q): expected %v", tt.addr, tt.want)
		}
	}
}
