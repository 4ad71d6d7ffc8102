// Package client talks to the schedule REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"power_schedule/internal/models"
	"power_schedule/internal/service"
)

// ScheduleStore is the remote view of schedules and timezones.
type ScheduleStore interface {
	List(ctx context.Context, includeSpecial bool) ([]models.Schedule, error)
	Get(ctx context.Context, id int) (models.Schedule, error)
	Create(ctx context.Context, in service.ScheduleInput) (models.Schedule, error)
	Update(ctx context.Context, id int, in service.ScheduleInput) (models.Schedule, error)
	Delete(ctx context.Context, id int) error
	TimeZones(ctx context.Context) ([]models.TimeZone, error)
}

// APIError is a non-2xx answer of the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ ScheduleStore = (*Client)(nil)

// New returns a client for the server at baseURL authenticating with a
// bearer token. A zero timeout disables the request timeout.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) List(ctx context.Context, includeSpecial bool) ([]models.Schedule, error) {
	q := url.Values{}
	if includeSpecial {
		q.Set("include_special", "true")
	}
	var out struct {
		Schedules []models.Schedule `json:"schedules"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/schedules", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Schedules, nil
}

func (c *Client) Get(ctx context.Context, id int) (models.Schedule, error) {
	var out models.Schedule
	err := c.do(ctx, http.MethodGet, "/api/v1/schedules/"+strconv.Itoa(id), nil, nil, &out)
	return out, err
}

func (c *Client) Create(ctx context.Context, in service.ScheduleInput) (models.Schedule, error) {
	var out models.Schedule
	err := c.do(ctx, http.MethodPost, "/api/v1/schedules", nil, in, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, id int, in service.ScheduleInput) (models.Schedule, error) {
	var out models.Schedule
	err := c.do(ctx, http.MethodPut, "/api/v1/schedules/"+strconv.Itoa(id), nil, in, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/schedules/"+strconv.Itoa(id), nil, nil, nil)
}

func (c *Client) TimeZones(ctx context.Context) ([]models.TimeZone, error) {
	var out struct {
		TimeZones []models.TimeZone `json:"timezones"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/timezones", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.TimeZones, nil
}

// MatrixPNG downloads the rendered grid of schedule id.
func (c *Client) MatrixPNG(ctx context.Context, id int) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/schedules/"+strconv.Itoa(id)+"/matrix.png", nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get matrix png: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body any) (*http.Request, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, q, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
