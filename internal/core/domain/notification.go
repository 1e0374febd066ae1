package domain

// Recipient is one matched person to notify: identifier, destination
// address and display name. Tuples arrive on the notification boundary or
// are resolved from the person directory by person id.
type Recipient struct {
	PersonID string `json:"person_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// NotifyOutcome reports per-recipient delivery status. Success or failure
// of one message is independent of the others.
type NotifyOutcome struct {
	PersonID string `json:"person_id"`
	Email    string `json:"email"`
	Sent     bool   `json:"sent"`
	Error    string `json:"error,omitempty"`
}

// TokenClaims carries the identity on API requests.
type TokenClaims struct {
	Subject   string `json:"subject"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}
