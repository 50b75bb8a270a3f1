// Package types defines the wire and record types shared across the supervisor.
package types

// Account status values. These mirror the durable record's lifecycle: an
// account is DISCONNECTED until pairing starts, "qrcode" while a pairing
// payload is outstanding, and CONNECTED once the session is ready.
const (
	StatusDisconnected = "DISCONNECTED"
	StatusQRCode       = "qrcode"
	StatusConnected    = "CONNECTED"
)

// Account is the durable record for one WhatsApp channel. The record is the
// source of truth for connection status and retry bookkeeping; the in-memory
// session registry is only a cache of currently-live handles over it.
type Account struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	TenantID int    `json:"tenantId"`
	Status   string `json:"status"`
	Retries  int    `json:"retries"`
	// QRCode holds the current pairing payload, empty once connected.
	QRCode string `json:"qrcode"`
	// Session is the cached pairing state blob, cleared after repeated
	// authentication failures.
	Session string         `json:"session"`
	Number  string         `json:"number"`
	Phone   map[string]any `json:"phone,omitempty"`
}

// AccountUpdate is a partial update to an Account. Nil fields are left
// untouched, mirroring the record collaborator's update(partialFields)
// contract.
type AccountUpdate struct {
	Status  *string
	Retries *int
	QRCode  *string
	Session *string
	Number  *string
	Phone   map[string]any
}

// Apply copies the set fields onto acc.
func (u AccountUpdate) Apply(acc *Account) {
	if u.Status != nil {
		acc.Status = *u.Status
	}
	if u.Retries != nil {
		acc.Retries = *u.Retries
	}
	if u.QRCode != nil {
		acc.QRCode = *u.QRCode
	}
	if u.Session != nil {
		acc.Session = *u.Session
	}
	if u.Number != nil {
		acc.Number = *u.Number
	}
	if u.Phone != nil {
		acc.Phone = u.Phone
	}
}

// Clone returns an independent copy of the record. Event payloads carry
// clones: the live record keeps mutating on later transitions, so consumers
// on other goroutines must never alias it.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Phone != nil {
		cp.Phone = make(map[string]any, len(a.Phone))
		for k, v := range a.Phone {
			cp.Phone[k] = v
		}
	}
	return &cp
}

// Ptr returns a pointer to v, for building partial updates inline.
func Ptr[T any](v T) *T {
	return &v
}
