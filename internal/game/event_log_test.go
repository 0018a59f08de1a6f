package game

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestEventLogRequiresStart(t *testing.T) {
	el := NewEventLog()
	if el.Emit(NewEvent(EventTypeKill, 1, "ai-1", nil)) {
		t.Error("Emit before Start should be rejected")
	}
	if el.GetTotalCount() != 0 {
		t.Errorf("Expected no events, got %d", el.GetTotalCount())
	}
}

func TestEventLogSubscribe(t *testing.T) {
	el := NewEventLog()
	if err := el.Start(""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer el.Stop()

	var got []Event
	el.Subscribe(func(e Event) { got = append(got, e) })

	el.EmitSimple(EventTypeWaveStart, 10, "", WaveStartPayload{Wave: 1, Bonus: 20})
	el.EmitSimple(EventTypeKill, 11, "player", KillPayload{KillerID: "player", VictimID: "ai-3"})

	if len(got) != 2 {
		t.Fatalf("Expected 2 events relayed, got %d", len(got))
	}
	if got[0].Sequence != 1 || got[1].Sequence != 2 {
		t.Errorf("Expected sequences 1,2, got %d,%d", got[0].Sequence, got[1].Sequence)
	}
	if got[1].Type != EventTypeKill || got[1].TickNum != 11 || got[1].Version != EventVersion {
		t.Errorf("Unexpected event %+v", got[1])
	}

	var kp KillPayload
	if err := json.Unmarshal(got[1].Payload, &kp); err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if kp.VictimID != "ai-3" {
		t.Errorf("Expected victim ai-3, got %q", kp.VictimID)
	}
}

func TestEventLogSubjectRateLimit(t *testing.T) {
	el := NewEventLog()
	el.Start("")
	defer el.Stop()

	accepted := 0
	for i := 0; i < 100; i++ {
		if el.EmitSimple(EventTypeItemPickup, uint64(i), "ai-7", nil) {
			accepted++
		}
	}

	burst := MaxEventsPerSubject / 10
	if accepted < burst || accepted > burst+5 {
		t.Errorf("Expected about %d events accepted for one subject, got %d", burst, accepted)
	}
	if el.GetDroppedCount() != uint64(100-accepted) {
		t.Errorf("Expected %d dropped, got %d", 100-accepted, el.GetDroppedCount())
	}

	if !el.EmitSimple(EventTypeItemPickup, 100, "ai-8", nil) {
		t.Error("Other subjects should not be throttled")
	}
}

func TestEventLogWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	el := NewEventLog()
	if err := el.Start(path); err != nil {
		t.Fatalf("Start: %v", err)
	}

	el.EmitSimple(EventTypeRunStart, 0, "player", RunStartPayload{RunID: "r1"})
	el.EmitSimple(EventTypeKill, 5, "player", KillPayload{VictimID: "ai-1"})
	el.EmitSimple(EventTypeGameOver, 9, "player", RunSummary{RunID: "r1"})
	el.Stop()
	el.Stop()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	var types []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var line map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			t.Fatalf("Bad line %q: %v", sc.Text(), err)
		}
		types = append(types, line["type"].(string))
	}

	want := []string{"run_start", "kill", "game_over"}
	if len(types) != len(want) {
		t.Fatalf("Expected %d lines, got %v", len(want), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("Line %d: expected %s, got %s", i, want[i], types[i])
		}
	}

	stats := el.GetStats()
	if stats["pending"].(uint64) != 0 || stats["running"].(bool) {
		t.Errorf("Expected drained and stopped log, got %v", stats)
	}
}

func TestEventLogStartError(t *testing.T) {
	el := NewEventLog()
	err := el.Start(filepath.Join(t.TempDir(), "missing", "events.jsonl"))
	if err == nil {
		t.Fatal("Expected an error for a missing directory")
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{EventTypeTick, "tick"},
		{EventTypeBossSpawn, "boss_spawn"},
		{EventTypeMinionSpawn, "minion_spawn"},
		{EventTypeGameOver, "game_over"},
		{EventType(250), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("Expected %s, got %s", tt.want, got)
		}
	}
}

func BenchmarkEventLogEmit(b *testing.B) {
	el := NewEventLog()
	el.Start("")
	defer el.Stop()

	ev := NewEvent(EventTypeKill, 1, "", KillPayload{VictimID: "ai-1"})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		el.Emit(ev)
	}
}
