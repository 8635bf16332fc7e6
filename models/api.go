package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Request and response bodies of the public JSON endpoints.

// UserDetails is the registration form as submitted by the browser.
type UserDetails struct {
	Name                 string `json:"name"`
	Age                  Age    `json:"age"`
	GameID               string `json:"gameId"`
	GameUsername         string `json:"gameUsername"`
	Phone                string `json:"phone"`
	Email                string `json:"email"`
	TermsAccepted        bool   `json:"termsAccepted"`
	RefundPolicyAccepted bool   `json:"refundPolicyAccepted"`
}

// CreateOrderRequest is the body of POST /payment/create-order.
type CreateOrderRequest struct {
	TournamentID string       `json:"tournamentId"`
	UserDetails  *UserDetails `json:"userDetails"`
}

// OrderSummary is the part of the gateway order the checkout widget needs.
type OrderSummary struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

// CreateOrderResponse is the success body of POST /payment/create-order.
type CreateOrderResponse struct {
	Success        bool         `json:"success"`
	Order          OrderSummary `json:"order"`
	RegistrationID string       `json:"registrationId"`
}

// VerifyPaymentRequest is the body of POST /payment/verify: the gateway's
// checkout callback plus our registration id.
type VerifyPaymentRequest struct {
	OrderID        string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
	RegistrationID string `json:"registrationId"`
}

// VerifyPaymentResponse is the success body of POST /payment/verify.
// SeatNumber is omitted while a captured payment awaits reconciliation.
type VerifyPaymentResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	SeatNumber int    `json:"seatNumber,omitempty"`
}

// PaymentFailedRequest is the body of POST /payment/failed.
type PaymentFailedRequest struct {
	RegistrationID string `json:"registrationId"`
	OrderID        string `json:"razorpay_order_id,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// TournamentsResponse is the body of GET /tournaments.
type TournamentsResponse struct {
	Success     bool         `json:"success"`
	Tournaments []Tournament `json:"tournaments"`
}

// TournamentResponse is the body of GET /tournaments/:id.
type TournamentResponse struct {
	Success    bool       `json:"success"`
	Tournament Tournament `json:"tournament"`
}

// MessageResponse is used for failures and simple acknowledgements.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Age accepts either a JSON number or a numeric string, since browsers
// submit form values both ways.
type Age string

func (a *Age) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Age(strings.TrimSpace(s))
		return nil
	}
	*a = Age(b)
	return nil
}

func (a Age) MarshalJSON() ([]byte, error) {
	if n, err := a.Int(); err == nil {
		return []byte(strconv.Itoa(n)), nil
	}
	return json.Marshal(string(a))
}

// Int parses the age as a whole number.
func (a Age) Int() (int, error) {
	return strconv.Atoi(string(a))
}

// AgeOf builds an Age from an int.
func AgeOf(n int) Age {
	return Age(strconv.Itoa(n))
}
