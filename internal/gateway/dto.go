package gateway

// Profile is the account view returned by the identity/balance service.
type Profile struct {
	Balance  float64 `json:"balance"`
	FullName string  `json:"fullname"`
	Email    string  `json:"email"`
	Currency string  `json:"currency"`
}

// WithdrawRequest is the payload submitted to the mobile-money gateway. The
// phone must already be in 254XXXXXXXXX form.
type WithdrawRequest struct {
	Amount           float64 `json:"amount"`
	Phone            string  `json:"phone"`
	AccountID        string  `json:"deriv_account"`
	VerificationCode string  `json:"verification_code"`
	PaymentAgent     string  `json:"payment_agent,omitempty"`
}

// DepositRequest initiates an STK push. Amount is the local-currency figure.
type DepositRequest struct {
	Amount    float64 `json:"amount"`
	Phone     string  `json:"phone"`
	AccountID string  `json:"deriv_account"`
}

// StatusResult is a single observation of a withdrawal's server-side state.
type StatusResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Transaction is one row of the remote transaction list, passed through to
// the UI untouched.
type Transaction struct {
	ID     string  `json:"id"`
	Type   string  `json:"transaction_type"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
	Date   string  `json:"date"`
}

// TokenGrant is the result of exchanging a deep-link token at login.
type TokenGrant struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	AccountID    string  `json:"deriv_account"`
	Balance      float64 `json:"deriv_balance"`
}

type userResponse struct {
	User Profile `json:"user"`
}

type withdrawResponse struct {
	Data struct {
		TransactionID string `json:"transactionId"`
	} `json:"data"`
}

type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

type refreshResponse struct {
	Access string `json:"access"`
}
