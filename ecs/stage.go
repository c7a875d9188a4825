package ecs

// Stage orders systems within a tick: Before, then Default, then After.
type Stage int

const (
	// Before runs first, for input handling and setup other systems read.
	Before Stage = iota
	// Default runs the main game logic.
	Default
	// After runs last, for cleanup and syncing state back to players.
	After

	stageCount
)

func (s Stage) String() string {
	switch s {
	case Before:
		return "Before"
	case Default:
		return "Default"
	case After:
		return "After"
	}
	return "Unknown"
}

func (s Stage) valid() bool {
	return s >= Before && s < stageCount
}
