package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexcompute/apex-compute/config"
	"github.com/apexcompute/apex-compute/internal/fastf1"
	"github.com/apexcompute/apex-compute/internal/laps"
)

// mockSession simulates a provider session handle for testing
type mockSession struct {
	loadCalls int
	loadOpts  fastf1.LoadOptions
	loadErr   error

	name       string
	drivers    []string
	driversErr error
	laps       *laps.Table
}

func (m *mockSession) Load(ctx context.Context, opts fastf1.LoadOptions) error {
	m.loadCalls++
	m.loadOpts = opts
	return m.loadErr
}

func (m *mockSession) Name() string { return m.name }

func (m *mockSession) Drivers() ([]string, error) {
	if m.driversErr != nil {
		return nil, m.driversErr
	}
	return m.drivers, nil
}

func (m *mockSession) Laps() *laps.Table { return m.laps }

// mockProvider counts GetSession calls so tests can assert that rejected
// requests never reach the provider
type mockProvider struct {
	getSessionCalls int
	session         *mockSession
	err             error
}

func (m *mockProvider) GetSession(year int, gp, session string) (fastf1.Session, error) {
	m.getSessionCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func newTestServer(t *testing.T, provider *mockProvider) *Server {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: "8080",
		},
	}
	return New(cfg, provider)
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if str, ok := body.(string); ok {
		buf.WriteString(str)
	} else {
		jsonData, err := json.Marshal(body)
		require.NoError(t, err)
		buf.Write(jsonData)
	}

	req, err := http.NewRequest("POST", path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func bahrainLapTable(t *testing.T, lapCount int) *laps.Table {
	t.Helper()

	table := laps.NewTable([]laps.Column{
		{Name: "Driver", Type: laps.TypeString},
		{Name: "LapNumber", Type: laps.TypeNumber},
		{Name: "Compound", Type: laps.TypeString},
		{Name: "LapTime", Type: laps.TypeDuration},
		{Name: "Sector1Time", Type: laps.TypeDuration},
		{Name: "IsPersonalBest", Type: laps.TypeBool},
		// Outside the allow-list; must never be serialized.
		{Name: "PitOutTime", Type: laps.TypeDuration},
	})

	for i := 0; i < lapCount; i++ {
		require.NoError(t, table.AppendRow([]laps.Cell{
			laps.StringCell("44"),
			laps.NumberCell(float64(i + 1)),
			laps.StringCell("SOFT"),
			laps.DurationCell(93.5 + float64(i)),
			laps.MissingCell(laps.TypeDuration),
			laps.BoolCell(false),
			laps.DurationCell(1200),
		}))
	}
	require.NoError(t, table.AppendRow([]laps.Cell{
		laps.StringCell("1"),
		laps.NumberCell(1),
		laps.StringCell("MEDIUM"),
		laps.DurationCell(92.0004),
		laps.DurationCell(29.1),
		laps.BoolCell(true),
		laps.MissingCell(laps.TypeDuration),
	}))
	return table
}

func TestSessionInfo(t *testing.T) {
	provider := &mockProvider{session: &mockSession{
		name:    "Race",
		drivers: []string{"1", "44", "16"},
	}}
	server := newTestServer(t, provider)

	rr := postJSON(t, server, "/session/info", SessionRequest{Year: 2023, GP: "Bahrain", Session: "R"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"year":2023,"gp":"Bahrain","session":"R","session_name":"Race","drivers":["1","44","16"]}`, rr.Body.String())

	// Default load options fetch everything.
	assert.Equal(t, fastf1.DefaultLoadOptions(), provider.session.loadOpts)
	assert.Equal(t, 1, provider.session.loadCalls)
}

func TestSessionInfoWithoutName(t *testing.T) {
	provider := &mockProvider{session: &mockSession{drivers: []string{"1"}}}
	server := newTestServer(t, provider)

	rr := postJSON(t, server, "/session/info", SessionRequest{Year: 2023, GP: "Bahrain", Session: "FP1"})

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Contains(t, response, "session_name")
	assert.Nil(t, response["session_name"])
}

func TestSessionInfoDriverListDegradation(t *testing.T) {
	provider := &mockProvider{session: &mockSession{
		name:       "Race",
		driversErr: errors.New("driver info missing"),
	}}
	server := newTestServer(t, provider)

	rr := postJSON(t, server, "/session/info", SessionRequest{Year: 2023, GP: "Bahrain", Session: "R"})

	// Driver list failure degrades to an empty list, never a request failure.
	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, []any{}, response["drivers"])
}

func TestSessionInfoUpstreamError(t *testing.T) {
	provider := &mockProvider{session: &mockSession{
		loadErr: errors.New("Failed to load any schedule data."),
	}}
	server := newTestServer(t, provider)

	rr := postJSON(t, server, "/session/info", SessionRequest{Year: 2023, GP: "Atlantis", Session: "R"})

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "FastF1 error: Failed to load any schedule data.", response.Detail)
}

func TestSessionRequestValidation(t *testing.T) {
	tests := []struct {
		name        string
		requestBody any
	}{
		{
			name:        "year below range",
			requestBody: SessionRequest{Year: 1900, GP: "Bahrain", Session: "R"},
		},
		{
			name:        "year above range",
			requestBody: SessionRequest{Year: 2101, GP: "Bahrain", Session: "R"},
		},
		{
			name:        "unknown session token",
			requestBody: SessionRequest{Year: 2023, GP: "Bahrain", Session: "SPRINT"},
		},
		{
			name:        "missing gp",
			requestBody: SessionRequest{Year: 2023, Session: "R"},
		},
		{
			name:        "empty body",
			requestBody: map[string]any{},
		},
		{
			name:        "invalid json",
			requestBody: "not json",
		},
	}

	for _, path := range []string{"/session/info", "/session/laps"} {
		for _, tt := range tests {
			t.Run(path+" "+tt.name, func(t *testing.T) {
				provider := &mockProvider{session: &mockSession{}}
				server := newTestServer(t, provider)

				rr := postJSON(t, server, path, tt.requestBody)

				assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

				var response ErrorResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
				assert.NotEmpty(t, response.Detail)

				// Rejected before any provider call.
				assert.Equal(t, 0, provider.getSessionCalls)
			})
		}
	}
}

func TestSessionLaps(t *testing.T) {
	provider := &mockProvider{session: &mockSession{
		laps: bahrainLapTable(t, 2),
	}}
	server := newTestServer(t, provider)

	rr := postJSON(t, server, "/session/laps", SessionRequest{Year: 2023, GP: "Bahrain", Session: "R"})

	require.Equal(t, http.StatusOK, rr.Code)

	var response struct {
		Count int              `json:"count"`
		Data  []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))

	assert.Equal(t, 3, response.Count)
	assert.Len(t, response.Data, response.Count)

	first := response.Data[0]
	assert.Equal(t, "44", first["Driver"])
	assert.Equal(t, float64(1), first["LapNumber"])
	assert.Equal(t, "SOFT", first["Compound"])

	// Durations are rounded integer milliseconds.
	assert.Equal(t, float64(93500), first["LapTime"])

	// Missing values are explicit nulls, not omitted and not zero.
	assert.Contains(t, first, "Sector1Time")
	assert.Nil(t, first["Sector1Time"])

	// Columns outside the allow-list never appear.
	for _, rec := range response.Data {
		assert.NotContains(t, rec, "PitOutTime")
	}

	// Laps only; telemetry, weather and messages disabled.
	assert.Equal(t, fastf1.LapsOnly(), provider.session.loadOpts)
}

func TestSessionLapsDriverFilter(t *testing.T) {
	provider := &mockProvider{session: &mockSession{
		laps: bahrainLapTable(t, 58),
	}}
	server := newTestServer(t, provider)

	rr := postJSON(t, server, "/session/laps?driver=44", SessionRequest{Year: 2023, GP: "Bahrain", Session: "R"})

	require.Equal(t, http.StatusOK, rr.Code)

	var response struct {
		Count int              `json:"count"`
		Data  []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))

	assert.Equal(t, 58, response.Count)
	assert.Len(t, response.Data, 58)
	for _, rec := range response.Data {
		assert.Equal(t, "44", rec["Driver"])
	}
}

func TestSessionLapsDriverFilterNoMatch(t *testing.T) {
	provider := &mockProvider{session: &mockSession{
		laps: bahrainLapTable(t, 2),
	}}
	server := newTestServer(t, provider)

	rr := postJSON(t, server, "/session/laps?driver=99", SessionRequest{Year: 2023, GP: "Bahrain", Session: "R"})

	// Zero matches is an empty result, not an error.
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":0,"data":[]}`, rr.Body.String())
}

func TestSessionLapsAbsentColumns(t *testing.T) {
	// Sprint-style table missing sector times entirely.
	table := laps.NewTable([]laps.Column{
		{Name: "Driver", Type: laps.TypeString},
		{Name: "LapNumber", Type: laps.TypeNumber},
		{Name: "LapTime", Type: laps.TypeDuration},
	})
	require.NoError(t, table.AppendRow([]laps.Cell{
		laps.StringCell("16"), laps.NumberCell(1), laps.DurationCell(100.25),
	}))

	provider := &mockProvider{session: &mockSession{laps: table}}
	server := newTestServer(t, provider)

	rr := postJSON(t, server, "/session/laps", SessionRequest{Year: 2023, GP: "Bahrain", Session: "SQ"})

	require.Equal(t, http.StatusOK, rr.Code)

	var response struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	require.Len(t, response.Data, 1)

	// Absent columns are dropped, never null-padded.
	rec := response.Data[0]
	assert.NotContains(t, rec, "Sector1Time")
	assert.NotContains(t, rec, "Compound")
	assert.Equal(t, float64(100250), rec["LapTime"])
}

func TestSessionLapsNilTable(t *testing.T) {
	provider := &mockProvider{session: &mockSession{}}
	server := newTestServer(t, provider)

	rr := postJSON(t, server, "/session/laps", SessionRequest{Year: 2023, GP: "Bahrain", Session: "R"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":0,"data":[]}`, rr.Body.String())
}

func TestSessionLapsUpstreamError(t *testing.T) {
	provider := &mockProvider{session: &mockSession{
		loadErr: errors.New("connection refused"),
	}}
	server := newTestServer(t, provider)

	rr := postJSON(t, server, "/session/laps", SessionRequest{Year: 2023, GP: "Bahrain", Session: "R"})

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "FastF1 error:")
}
