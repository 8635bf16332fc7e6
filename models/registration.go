package models

import "time"

// Payment statuses of a registration
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Registration is one player's booking for a tournament. It is created
// pending alongside a gateway order and becomes immutable once completed.
type Registration struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;index"`

	UserName     string `json:"user_name" gorm:"not null"`
	Age          int    `json:"age"`
	GameID       string `json:"game_id" gorm:"not null"`
	GameUsername string `json:"game_username" gorm:"not null"`
	PhoneNumber  string `json:"phone_number" gorm:"type:varchar(16)"`
	Email        string `json:"email" gorm:"not null"`

	RazorpayOrderID   string `json:"razorpay_order_id" gorm:"index"`
	RazorpayPaymentID string `json:"razorpay_payment_id,omitempty"`
	PaymentStatus     string `json:"payment_status" gorm:"type:varchar(16);default:'pending';index"`
	SeatNumber        *int   `json:"seat_number,omitempty"`
	FailureReason     string `json:"failure_reason,omitempty"`

	TermsAccepted        bool `json:"terms_accepted"`
	RefundPolicyAccepted bool `json:"refund_policy_accepted"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// IsCompleted reports whether the seat has been granted.
func (r *Registration) IsCompleted() bool {
	return r.PaymentStatus == PaymentStatusCompleted
}

// RegistrationUpdate is the change-feed payload for a registration row.
// Personal contact fields are never broadcast.
type RegistrationUpdate struct {
	TournamentID  string `json:"tournament_id"`
	UserName      string `json:"user_name"`
	PaymentStatus string `json:"payment_status"`
	SeatNumber    int    `json:"seat_number,omitempty"`
}
