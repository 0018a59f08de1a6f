package game

// StageForScore returns the highest stage whose threshold score has reached.
func StageForScore(score int) int {
	for i := len(EvolutionStages) - 1; i >= 0; i-- {
		if float64(score) >= EvolutionStages[i].MinScore {
			return i
		}
	}
	return 0
}

// checkEvolution recomputes the worm's stage and reports a transition.
// It fires once per change, not every frame the score stays above a
// threshold.
func checkEvolution(w *Worm) (evolved bool, from, to int) {
	stage := StageForScore(w.Score)
	if stage == w.EvolutionStage {
		return false, stage, stage
	}
	from = w.EvolutionStage
	w.EvolutionStage = stage
	return true, from, stage
}
