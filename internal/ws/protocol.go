package ws

// frameHeader is the envelope every inbound frame carries; the remaining
// typed fields are decoded by the command that handles the frame.
type frameHeader struct {
	MessageID string `json:"messageId"`
	Type      string `json:"type"`
}
