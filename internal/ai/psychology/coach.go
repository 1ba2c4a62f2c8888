package psychology

import "intraday-trader/internal/models"

// coaching returns a short behavioural note for each state. Attached to
// guard decisions so session logs read like a trading journal.
func coaching(s models.EmotionalState) string {
	switch s {
	case models.StateHalted:
		return "Done for today. Review the session instead of forcing trades."
	case models.StateRevenge:
		return "The market does not owe you the loss back. Step away until the cooldown ends."
	case models.StateGreedy:
		return "A good day becomes a bad one by giving profits back. Protect what you have."
	case models.StateFearful:
		return "Losses cluster. Smaller size keeps you in the game while form returns."
	case models.StateOverconfident:
		return "Win streaks end. Keep size honest and let the edge do the work."
	case models.StateFOMO:
		return "Chasing an entry rarely improves it. Wait for the next clean setup."
	default:
		return "Plan the trade, trade the plan."
	}
}
