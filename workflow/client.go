package workflow

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Nisanth-2025/hyperXP/models"
	"github.com/Nisanth-2025/hyperXP/utils"
)

// APIError is a {success:false, message} response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// Client calls the booking endpoints over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: utils.HTTPClient}
}

func (c *Client) Tournaments(ctx context.Context) ([]models.Tournament, error) {
	var out models.TournamentsResponse
	if err := c.do(ctx, http.MethodGet, "/tournaments", nil, &out); err != nil {
		return nil, err
	}
	return out.Tournaments, nil
}

func (c *Client) Tournament(ctx context.Context, idOrSlug string) (*models.Tournament, error) {
	var out models.TournamentResponse
	if err := c.do(ctx, http.MethodGet, "/tournaments/"+url.PathEscape(idOrSlug), nil, &out); err != nil {
		return nil, err
	}
	return &out.Tournament, nil
}

func (c *Client) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	var out models.CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, "/payment/create-order", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyPayment(ctx context.Context, req models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error) {
	var out models.VerifyPaymentResponse
	if err := c.do(ctx, http.MethodPost, "/payment/verify", req, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &APIError{Status: http.StatusOK, Message: out.Message}
	}
	return &out, nil
}

func (c *Client) ReportFailure(ctx context.Context, req models.PaymentFailedRequest) error {
	var out models.MessageResponse
	return c.do(ctx, http.MethodPost, "/payment/failed", req, &out)
}

// StreamSeats reads the live seat stream and calls fn for each update
// until ctx is done or the server closes the stream.
func (c *Client) StreamSeats(ctx context.Context, tournamentID string, fn func(models.SeatUpdate)) error {
	u := c.BaseURL + "/tournaments/stream"
	if tournamentID != "" {
		u += "?tournamentId=" + url.QueryEscape(tournamentID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The shared client's timeout would cut a long-lived stream.
	stream := &http.Client{Transport: c.HTTP.Transport}
	resp, err := stream.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}

	var event string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			event = ""
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:") && event == "seats":
			var upd models.SeatUpdate
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &upd); err == nil {
				fn(upd)
			}
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return scanner.Err()
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var msg models.MessageResponse
		_ = json.Unmarshal(raw, &msg)
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
