package models

// PaymentOrder is an order issued by the payment gateway. Owned by the
// gateway; registrations only reference its ID.
type PaymentOrder struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity,omitempty"`
	Amount    int64             `json:"amount"` // minor units (paise)
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt,omitempty"`
	Status    string            `json:"status,omitempty"`
	Notes     map[string]string `json:"notes,omitempty"`
	CreatedAt int64             `json:"created_at,omitempty"`
}
