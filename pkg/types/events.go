package types

// Session event actions published on a tenant's whatsappSession channel.
// "update" reports any record change; "readySession" additionally signals
// that the session is safe to route traffic to.
const (
	ActionUpdate       = "update"
	ActionReadySession = "readySession"
)

// SessionEvent is the payload published on a tenant channel whenever a
// session's record changes.
type SessionEvent struct {
	Action  string   `json:"action"`
	Session *Account `json:"session"`
}

// JobSendMessages drains an account's outbound work. Enqueued by the
// liveness monitor on every healthy probe; the consumer must drain
// idempotently since this is a best-effort trigger.
const JobSendMessages = "SendMessages"

// SendMessagesPayload identifies which session's outbound work to drain.
type SendMessagesPayload struct {
	SessionID int `json:"sessionId"`
	TenantID  int `json:"tenantId"`
}
