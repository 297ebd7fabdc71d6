package domain

// User mirrors the identity record returned by the marketplace backend after
// OTP verification or a profile update.
type User struct {
	ID                string  `json:"_id"`
	Name              string  `json:"name"`
	Phone             string  `json:"phone"`
	Email             string  `json:"email,omitempty"`
	PreferredLanguage string  `json:"preferred_language"`
	WalletBalance     float64 `json:"wallet_balance"`
}
