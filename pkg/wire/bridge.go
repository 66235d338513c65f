package wire

// Gesture event types sent by a bridge client.
const (
	EventPickUp = "pickup"
	EventEnter  = "enter"
	EventLeave  = "leave"
	EventDrop   = "drop"
	EventCancel = "cancel"
	EventEngine = "engine"
	EventState  = "state"
)

// GestureEvent is one client message. Piece and Origin are read by pickup, Region by enter,
// leave and drop.
type GestureEvent struct {
	Type   string `json:"type"`
	Piece  string `json:"piece,omitempty"`
	Origin string `json:"origin,omitempty"`
	Region string `json:"region,omitempty"`
}

// Move result outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeAbandoned = "abandoned"
	OutcomeFailed    = "failed"
)

var Outcomes = []string{OutcomeCommitted, OutcomeRejected, OutcomeAbandoned, OutcomeFailed}

type Marker struct {
	Index int    `json:"index"`
	Kind  string `json:"kind"`
}

// MoveResult reports how the last drop or engine turn ended.
type MoveResult struct {
	Outcome string `json:"outcome"`
	Action  string `json:"action,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// StateMessage is sent after every event.
type StateMessage struct {
	Session      string       `json:"session"`
	Position     string       `json:"position"`
	Player       int          `json:"player"`
	Winner       *int         `json:"winner,omitempty"`
	Status       string       `json:"status,omitempty"`
	InputEnabled [2]bool      `json:"input_enabled"`
	Orientation  int          `json:"orientation"`
	SquareSelect bool         `json:"square_select"`
	Markers      []Marker     `json:"markers"`
	Phase        string       `json:"phase"`
	Hidden       string       `json:"hidden,omitempty"`
	Highlighted  string       `json:"highlighted,omitempty"`
	Moves        int          `json:"moves"`
	Result       *MoveResult  `json:"result,omitempty"`
	Error        *DomainError `json:"error,omitempty"`
}
