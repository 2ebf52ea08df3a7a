package session

import "time"

// Session holds the authenticated state persisted for one device. It is the
// only entity that survives a restart; everything else is rebuilt per attempt.
type Session struct {
	AccountID    string    `json:"deriv_account"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	LoggedIn     bool      `json:"is_logged_in"`
	CreatedAt    time.Time `json:"created_at"`

	// Balance is the last balance observed from the identity service. It is
	// a cache for pre-flight validation; the server stays authoritative.
	Balance float64 `json:"deriv_balance"`
}
