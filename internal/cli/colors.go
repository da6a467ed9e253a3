package cli

import "github.com/re-cinq/scriptorium/internal/ticket"

// ANSI escape codes for terminal colors
const (
	ansiGreen  = "\033[32m"
	ansiCyan   = "\033[36m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiDim    = "\033[2m"
	ansiReset  = "\033[0m"
)

// stateDisplay returns the symbol and color for a ticket state.
func stateDisplay(state ticket.State) (symbol, color string) {
	switch state {
	case ticket.StateOpen:
		return "◯", ansiYellow
	case ticket.StateInProgress:
		return "⟳", ansiCyan
	case ticket.StateDone:
		return "✓", ansiGreen
	default:
		return "·", ansiDim
	}
}

// healthDisplay returns the symbol and color for master's health.
func healthDisplay(green bool) (symbol, color string) {
	if green {
		return "●", ansiGreen
	}
	return "●", ansiRed
}
