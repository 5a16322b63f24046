package notify

// Wire message types exchanged over a realtime connection. Everything is a
// single JSON envelope discriminated by "type".
const (
	TypeCommand         = "command"
	TypeNotifications   = "notifications"
	TypeSessionExpiring = "sessionExpiring"
)

// Commands carried in a TypeCommand envelope.
const (
	CommandPing    = "ping"
	CommandPong    = "pong"
	CommandRefresh = "refresh"
)

// Envelope is the wire format for both directions. Unused fields are
// omitted, so a pong is just {"type":"command","command":"pong"}.
type Envelope struct {
	Type          string         `json:"type"`
	Command       string         `json:"command,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
	// ExpiresIn is the number of seconds until forced disconnect, sent
	// with a sessionExpiring warning.
	ExpiresIn int `json:"expiresIn,omitempty"`
}

// Websocket close codes used by the registry. Mirrors RFC 6455.
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	ClosePolicyViolation = 1008
)
