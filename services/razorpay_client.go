package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/Nisanth-2025/hyperXP/models"
	"github.com/Nisanth-2025/hyperXP/utils"
)

// PaymentGateway is the payment provider as seen by the order and
// verification services.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*models.PaymentOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// OrderRequest is the body of a gateway order creation.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// RazorpayClient talks to the Razorpay Orders API.
type RazorpayClient struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Client    *http.Client
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func NewRazorpayClient(baseURL, keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		BaseURL:   baseURL,
		KeyID:     keyID,
		KeySecret: keySecret,
		Client:    utils.HTTPClient,
	}
}

// CreateOrder calls POST /orders
func (c *RazorpayClient) CreateOrder(ctx context.Context, in OrderRequest) (*models.PaymentOrder, error) {
	jsonData, err := json.Marshal(in)
	if err != nil {
		return nil, &GatewayError{Op: "create order", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/orders", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &GatewayError{Op: "create order", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.KeySecret)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, &GatewayError{Op: "create order", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		var rzpErr razorpayError
		if json.Unmarshal(body, &rzpErr) == nil && rzpErr.Error.Description != "" {
			log.Printf("❌ [RAZORPAY] /orders returned %d: %s (%s)", resp.StatusCode, rzpErr.Error.Description, rzpErr.Error.Code)
			return nil, &GatewayError{Op: "create order", Err: fmt.Errorf("%s: %s", rzpErr.Error.Code, rzpErr.Error.Description)}
		}
		log.Printf("❌ [RAZORPAY] /orders returned %d: %.200s", resp.StatusCode, string(body))
		return nil, &GatewayError{Op: "create order", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var out models.PaymentOrder
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &GatewayError{Op: "create order", Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.ID == "" {
		return nil, &GatewayError{Op: "create order", Err: fmt.Errorf("response carried no order id")}
	}
	return &out, nil
}

// VerifySignature checks a checkout callback signature with the key secret.
func (c *RazorpayClient) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(c.KeySecret, orderID, paymentID, signature)
}
