package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"wormarena/internal/game"
	"wormarena/internal/render"
)

const (
	defaultMinimapSize = 160
	maxMinimapSize     = 512
	maxCommandBody     = 1024
)

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.GetSnapshot()
	hud := snap.HUD

	effects := make([]map[string]interface{}, 0, len(hud.Effects))
	for _, fx := range hud.Effects {
		effects = append(effects, map[string]interface{}{
			"kind":      fx.Kind,
			"icon":      fx.Icon,
			"remaining": fx.Remaining,
		})
	}

	offer := h.engine.SkillOffer()
	choices := make([]map[string]interface{}, 0, len(offer))
	for i, s := range offer {
		choices = append(choices, map[string]interface{}{
			"index": i,
			"id":    s.ID,
			"name":  s.Name,
			"icon":  s.Icon,
			"desc":  s.Desc,
		})
	}

	state := map[string]interface{}{
		"runId":          snap.RunID,
		"state":          snap.State,
		"paused":         snap.Paused,
		"frame":          snap.Frame,
		"score":          hud.Score,
		"length":         hud.Length,
		"kills":          hud.Kills,
		"wave":           hud.Wave,
		"waveProgress":   hud.WaveProgress,
		"stage":          hud.Stage,
		"stageName":      hud.StageName,
		"stageIcon":      hud.StageIcon,
		"minionCooldown": hud.MinionCooldown,
		"survival":       game.FormatTime(hud.Survival),
		"bossesAlive":    hud.BossesAlive,
		"nextSkillScore": hud.NextSkillScore,
		"aliveCount":     snap.AliveCount,
		"effects":        effects,
		"skillChoices":   choices,
		"muted":          h.engine.Muted(),
		"notifications":  h.engine.Notifications(),
	}
	if s, ok := h.engine.LastSummary(); ok {
		state["summary"] = s
	}
	writeJSON(w, state)
}

// statsResponse flattens engine counters next to the HTTP limiter's.
type statsResponse struct {
	game.EngineStats
	RateLimit map[string]uint64 `json:"rateLimit"`
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statsResponse{
		EngineStats: h.engine.Stats(),
		RateLimit:   h.limiter.Stats(),
	})
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	n := game.LeaderboardSize
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 50 {
			writeError(w, "n must be 1-50", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	writeJSON(w, h.engine.Leaderboard(n))
}

func (h *routerHandlers) handleGetRecords(w http.ResponseWriter, r *http.Request) {
	rec := h.engine.Records()
	writeJSON(w, map[string]interface{}{
		"highScore":       rec.HighScore,
		"maxLength":       rec.MaxLength,
		"maxKills":        rec.MaxKills,
		"longestSurvival": game.FormatTime(rec.LongestSurvival),
		"totalGames":      rec.TotalGames,
		"newRecords":      h.engine.Summary().NewRecords,
	})
}

func (h *routerHandlers) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	list := h.engine.Achievements()
	unlocked := 0
	for _, a := range list {
		if a.Unlocked {
			unlocked++
		}
	}
	writeJSON(w, map[string]interface{}{
		"unlocked":     unlocked,
		"total":        len(list),
		"achievements": list,
	})
}

func (h *routerHandlers) handleGetMinimap(w http.ResponseWriter, r *http.Request) {
	size := h.minimapSize
	if v := r.URL.Query().Get("size"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 32 || parsed > maxMinimapSize {
			writeError(w, "size must be 32-512", http.StatusBadRequest)
			return
		}
		size = parsed
	}

	data, err := render.EncodePNG(render.Minimap(h.engine.GetSnapshot(), size))
	if err != nil {
		log.Printf("❌ Minimap render failed: %v", err)
		writeError(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// command adapts a control route to the shared command handler. The body is
// the command payload.
func (h *routerHandlers) command(t string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBody+1))
		if err != nil {
			writeError(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if len(body) > maxCommandBody {
			writeError(w, "Request too large", http.StatusRequestEntityTooLarge)
			return
		}

		reply, err := applyCommand(h.engine, t, json.RawMessage(body))
		RecordCommand(t)
		switch {
		case errors.Is(err, ErrBadPayload):
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, ErrNoSkillOffer):
			writeError(w, err.Error(), http.StatusConflict)
			return
		case err != nil:
			writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if t == MsgStart {
			log.Printf("🎮 Run started via API: %v", reply)
		}
		if reply == nil {
			reply = map[string]bool{"success": true}
		}
		writeJSON(w, reply)
	}
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
