package event

type Type string

const (
	TypeSessionRestored Type = "session.restored"
	TypeSessionCleared  Type = "session.cleared"
	TypeSignedIn        Type = "session.signed_in"
	TypeSignedOut       Type = "session.signed_out"
	TypeRegistered      Type = "session.registered"
	TypeSessionExpired  Type = "session.expired"
	TypeTokenRefreshed  Type = "token.refreshed"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"` // user the transition applies to
}

type Bus interface {
	Publish(e Event)
	Subscribe(types ...Type) (<-chan Event, func()) // Returns channel and unsubscribe function
}
