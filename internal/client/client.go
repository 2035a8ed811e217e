// Package client talks to a focusd server on behalf of one user. It
// implements timer.Reporter and offers the read calls the CLI and TUI need.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/focusd/internal/points"
	"github.com/sadopc/focusd/internal/progress"
	"github.com/sadopc/focusd/internal/store"
	"github.com/sadopc/focusd/internal/timer"
)

const (
	defaultTimeout = 10 * time.Second
	beaconTimeout  = 2 * time.Second
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status    int
	Message   string
	Field     string
	Retryable bool
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("server returned %d: %s: %s", e.Status, e.Field, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsRetryable reports whether err is worth sending again later.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable || apiErr.Status >= 500
	}
	// Transport failures.
	return err != nil
}

type Client struct {
	baseURL string
	user    string
	http    *http.Client
	log     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL, user string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		user:    user,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ timer.Reporter = (*Client)(nil)

// Day is a daily record as the server returns it.
type Day struct {
	store.DailySession
	TotalMinutes int `json:"totalMinutes"`
	GoalMinutes  int `json:"goalMinutes"`
}

// Completion is the answer to a completion report.
type Completion struct {
	Day
	Points *points.Outcome `json:"points,omitempty"`
	Streak *points.Outcome `json:"streak,omitempty"`
}

// TaskResult is a task after a toggle, with the point outcome if any.
type TaskResult struct {
	store.Task
	Points *points.Outcome `json:"points,omitempty"`
}

func (d Day) totals() timer.DayTotals {
	return timer.DayTotals{
		CompletedMinutes:       d.CompletedMinutes,
		ActiveMinutes:          d.ActiveMinutes,
		TotalMinutes:           d.TotalMinutes,
		SessionsCompletedCount: d.SessionsCompleted,
		Achieved:               d.Achieved,
	}
}

func (c *Client) ReportActive(ctx context.Context, r timer.ActiveReport) (timer.DayTotals, error) {
	var d Day
	if err := c.do(ctx, c.http, http.MethodPost, "/session/active", r, &d); err != nil {
		return timer.DayTotals{}, err
	}
	return d.totals(), nil
}

func (c *Client) ReportComplete(ctx context.Context, r timer.CompleteReport) (timer.DayTotals, error) {
	res, err := c.Complete(ctx, r)
	if err != nil {
		return timer.DayTotals{}, err
	}
	return res.totals(), nil
}

// Complete sends a completion report and returns the full answer including
// point outcomes.
func (c *Client) Complete(ctx context.Context, r timer.CompleteReport) (*Completion, error) {
	var res Completion
	if err := c.do(ctx, c.http, http.MethodPost, "/session/complete", r, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Beacon sends the report once and gives up after beaconTimeout. Failures
// are logged only. The timer dispatches it, so a slow server never holds up
// the UI.
func (c *Client) Beacon(r timer.ActiveReport) {
	ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
	defer cancel()
	hc := &http.Client{Timeout: beaconTimeout, Transport: c.http.Transport}
	if err := c.do(ctx, hc, http.MethodPost, "/session/active", r, nil); err != nil {
		c.log.Warn("beacon not delivered", "minutes", r.Minutes, "err", err)
	}
}

func (c *Client) Today(ctx context.Context) (*Day, error) {
	var d Day
	if err := c.do(ctx, c.http, http.MethodGet, "/session/today", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Month(ctx context.Context, year int, month time.Month) ([]Day, error) {
	var ds []Day
	path := fmt.Sprintf("/session/month/%d/%d", year, int(month))
	if err := c.do(ctx, c.http, http.MethodGet, path, nil, &ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (c *Client) All(ctx context.Context) ([]Day, error) {
	var ds []Day
	if err := c.do(ctx, c.http, http.MethodGet, "/session/all", nil, &ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (c *Client) ResetToday(ctx context.Context) error {
	return c.do(ctx, c.http, http.MethodDelete, "/session/today", nil, nil)
}

func (c *Client) Points(ctx context.Context) (progress.Status, error) {
	var st progress.Status
	err := c.do(ctx, c.http, http.MethodGet, "/points/me", nil, &st)
	return st, err
}

func (c *Client) History(ctx context.Context, limit int) ([]store.Transaction, error) {
	var txs []store.Transaction
	path := "/points/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.do(ctx, c.http, http.MethodGet, path, nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *Client) Streak(ctx context.Context) (progress.Streaks, error) {
	var st progress.Streaks
	err := c.do(ctx, c.http, http.MethodGet, "/points/streak", nil, &st)
	return st, err
}

func (c *Client) Tasks(ctx context.Context) ([]store.Task, error) {
	var ts []store.Task
	if err := c.do(ctx, c.http, http.MethodGet, "/tasks", nil, &ts); err != nil {
		return nil, err
	}
	return ts, nil
}

func (c *Client) CreateTask(ctx context.Context, title string) (*store.Task, error) {
	var t store.Task
	body := map[string]string{"title": title}
	if err := c.do(ctx, c.http, http.MethodPost, "/tasks", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) SetTaskCompleted(ctx context.Context, id int64, completed bool) (*TaskResult, error) {
	var res TaskResult
	body := map[string]bool{"completed": completed}
	if err := c.do(ctx, c.http, http.MethodPut, "/tasks/"+strconv.FormatInt(id, 10), body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Auth-User", c.user)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var eb struct {
			Error     string `json:"error"`
			Field     string `json:"field"`
			Retryable bool   `json:"retryable"`
		}
		if json.Unmarshal(respBytes, &eb) == nil && eb.Error != "" {
			apiErr.Message = eb.Error
			apiErr.Field = eb.Field
			apiErr.Retryable = eb.Retryable
		}
		return apiErr
	}

	if out == nil || len(respBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("unmarshaling response: %w", err)
	}
	return nil
}
