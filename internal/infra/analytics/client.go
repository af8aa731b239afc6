package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"estore/internal/config"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// GA4 Measurement Protocolへ匿名イベントを送る
type Client struct {
	http          *http.Client
	endpoint      string
	measurementID string
	apiSecret     string
	clientID      string
	limiter       *rate.Limiter
}

func NewClient(cfg config.AnalyticsConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		http:          httpClient,
		endpoint:      cfg.Endpoint,
		measurementID: cfg.MeasurementID,
		apiSecret:     cfg.APISecret,
		clientID:      uuid.NewString(),
		limiter:       rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

// 未設定なら送らない
func (c *Client) Enabled() bool {
	return c.measurementID != "" && c.apiSecret != "" && c.endpoint != ""
}

type mpEvent struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params,omitempty"`
}

type mpPayload struct {
	ClientID string    `json:"client_id"`
	Events   []mpEvent `json:"events"`
}

func (c *Client) Track(ctx context.Context, name string, params map[string]interface{}) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(mpPayload{
		ClientID: c.clientID,
		Events:   []mpEvent{{Name: name, Params: params}},
	})
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("measurement_id", c.measurementID)
	q.Set("api_secret", c.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return fmt.Errorf("analytics: unexpected status %d", res.StatusCode)
	}
	return nil
}
