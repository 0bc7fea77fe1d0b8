package fastf1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/apexcompute/apex-compute/internal/laps"
)

// ErrNotLoaded is returned by session accessors before Load has succeeded.
var ErrNotLoaded = errors.New("session not loaded")

// Client talks to the FastF1 bridge service. It is safe for concurrent use;
// each load is an independent request with no dedup of identical concurrent
// loads.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a bridge client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetSession returns a handle for the given session. No I/O happens until
// Load; an unknown event surfaces as a Load error from the bridge.
func (c *Client) GetSession(year int, gp, session string) (Session, error) {
	return &bridgeSession{client: c, year: year, gp: gp, identifier: session}, nil
}

type bridgeSession struct {
	client     *Client
	year       int
	gp         string
	identifier string

	loaded   bool
	name     string
	drivers  []string
	lapTable *laps.Table
}

// sessionPayload is the bridge's wire format. Duration cells arrive as total
// seconds in floating point.
type sessionPayload struct {
	Name    string        `json:"name"`
	Drivers []string      `json:"drivers"`
	Laps    *tablePayload `json:"laps"`
}

type tablePayload struct {
	Columns []columnPayload `json:"columns"`
	Rows    [][]any         `json:"rows"`
}

type columnPayload struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *bridgeSession) Load(ctx context.Context, opts LoadOptions) error {
	q := url.Values{}
	q.Set("year", strconv.Itoa(s.year))
	q.Set("gp", s.gp)
	q.Set("session", s.identifier)
	q.Set("laps", strconv.FormatBool(opts.Laps))
	q.Set("telemetry", strconv.FormatBool(opts.Telemetry))
	q.Set("weather", strconv.FormatBool(opts.Weather))
	q.Set("messages", strconv.FormatBool(opts.Messages))
	endpoint := s.client.baseURL + "/api/v1/session?" + q.Encode()

	body, err := s.client.fetch(ctx, endpoint)
	if err != nil {
		return err
	}

	var payload sessionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("malformed session payload: %w", err)
	}

	table, err := payload.Laps.toTable()
	if err != nil {
		return err
	}

	s.name = payload.Name
	s.drivers = payload.Drivers
	s.lapTable = table
	s.loaded = true
	return nil
}

func (s *bridgeSession) Name() string {
	return s.name
}

func (s *bridgeSession) Drivers() ([]string, error) {
	if !s.loaded {
		return nil, ErrNotLoaded
	}
	return s.drivers, nil
}

func (s *bridgeSession) Laps() *laps.Table {
	if s.lapTable == nil {
		return laps.NewTable(nil)
	}
	return s.lapTable
}

func (p *tablePayload) toTable() (*laps.Table, error) {
	if p == nil {
		return laps.NewTable(nil), nil
	}

	cols := make([]laps.Column, len(p.Columns))
	for i, col := range p.Columns {
		ct, err := laps.ParseCellType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		cols[i] = laps.Column{Name: col.Name, Type: ct}
	}

	table := laps.NewTable(cols)
	for rowIdx, row := range p.Rows {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", rowIdx, len(row), len(cols))
		}
		cells := make([]laps.Cell, len(row))
		for i, raw := range row {
			cell, err := parseCell(cols[i].Type, raw)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %w", cols[i].Name, rowIdx, err)
			}
			cells[i] = cell
		}
		if err := table.AppendRow(cells); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func parseCell(t laps.CellType, raw any) (laps.Cell, error) {
	if raw == nil {
		return laps.MissingCell(t), nil
	}
	switch t {
	case laps.TypeNumber:
		if v, ok := raw.(float64); ok {
			return laps.NumberCell(v), nil
		}
	case laps.TypeString:
		if v, ok := raw.(string); ok {
			return laps.StringCell(v), nil
		}
	case laps.TypeDuration:
		if v, ok := raw.(float64); ok {
			return laps.DurationCell(v), nil
		}
	case laps.TypeBool:
		if v, ok := raw.(bool); ok {
			return laps.BoolCell(v), nil
		}
	}
	return laps.Cell{}, fmt.Errorf("unexpected %T value", raw)
}

// fetch performs a cached GET against the bridge. Only successful responses
// are cached; cache write failures are logged and ignored.
func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	if body, ok := cacheRead(endpoint); ok {
		slog.Debug("Bridge cache hit", "url", endpoint)
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read bridge response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(bridgeErrorMessage(resp.StatusCode, body))
	}

	cacheWrite(endpoint, body)
	return body, nil
}

// bridgeErrorMessage extracts the bridge's own error message so it can be
// surfaced to callers verbatim.
func bridgeErrorMessage(status int, body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return fmt.Sprintf("bridge returned status %d", status)
}
