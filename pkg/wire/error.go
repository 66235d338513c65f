package wire

// Error codes shared by the engine API and the bridge.
const (
	CodeBadRequest        = "bad_request"
	CodeMalformedPosition = "malformed_position"
	CodeInvalidAction     = "invalid_action"
	CodeEngineUnavailable = "engine_unavailable"
	CodeBusy              = "busy"
	CodeGameOver          = "game_over"
	CodeNotYourTurn       = "not_your_turn"
	CodeInputDisabled     = "input_disabled"
	CodeGestureActive     = "gesture_active"
	CodeNoGesture         = "no_gesture"
	CodeUnknownRegion     = "unknown_region"
	CodeEmptyOrigin       = "empty_origin"
	CodeNoEngineMove      = "no_engine_move"
	CodeUnauthorized      = "unauthorized"
	CodeInternal          = "internal"
)

// Codes lists every error code; each has a message in the bridge catalog.
var Codes = []string{
	CodeBadRequest, CodeMalformedPosition, CodeInvalidAction, CodeEngineUnavailable,
	CodeBusy, CodeGameOver, CodeNotYourTurn, CodeInputDisabled, CodeGestureActive,
	CodeNoGesture, CodeUnknownRegion, CodeEmptyOrigin, CodeNoEngineMove, CodeUnauthorized,
	CodeInternal,
}

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "yokai service error"
}
