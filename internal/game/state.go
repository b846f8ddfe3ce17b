package game

// ClawState is the claw's position in its drop cycle.
type ClawState string

const (
	ClawIdle       ClawState = "IDLE"
	ClawDescending ClawState = "DESCENDING"
	ClawAscending  ClawState = "ASCENDING"
)

func (s ClawState) String() string { return string(s) }

// Mode is the session's modal state. Only ModePlaying advances the machine.
type Mode string

const (
	ModePlaying    Mode = "PLAYING"
	ModePrizePopup Mode = "PRIZE_POPUP"
	ModeShelf      Mode = "SHELF"
)
