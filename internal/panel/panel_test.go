package panel

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airheads/glider-panel/internal/page"
	"github.com/airheads/glider-panel/internal/route"
	"github.com/airheads/glider-panel/internal/share"
)

func newPanel(t *testing.T) *Panel {
	t.Helper()
	p, err := New(share.NewStore(), page.New(page.DefaultPanel))
	require.NoError(t, err)
	return p
}

func get(p *Panel, path string, query url.Values) route.Response {
	return p.Routes.Dispatch(route.Request{Method: http.MethodGet, Path: path, Query: query})
}

func TestRoutes(t *testing.T) {
	p := newPanel(t)
	redirect := p.Pages.Redirect()

	tests := []struct {
		path        string
		status      int
		contentType string
		body        []byte
	}{
		{"/", http.StatusOK, route.ContentHTML, p.Pages.Root()},
		{"/activate", http.StatusOK, route.ContentHTML, redirect},
		{"/deactivate", http.StatusOK, route.ContentHTML, redirect},
		{"/calibrate", http.StatusOK, route.ContentHTML, redirect},
		{"/set_rudder", http.StatusOK, route.ContentHTML, redirect},
		{"/set_elevator", http.StatusOK, route.ContentHTML, redirect},
		{"/set_rudder_gain", http.StatusOK, route.ContentHTML, redirect},
		{"/set_elevator_gain", http.StatusOK, route.ContentHTML, redirect},
		{"/reset_gains", http.StatusOK, route.ContentHTML, redirect},
		{"/data", http.StatusOK, route.ContentText, []byte(SampleCSV())},
		{"/favicon.ico", http.StatusNotFound, route.ContentText, []byte("Not found")},
		{"/Activate", http.StatusNotFound, route.ContentText, []byte("Not found")},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := get(p, tt.path, nil)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.contentType, resp.ContentType)
			assert.Equal(t, tt.body, resp.Body)
		})
	}
}

func TestFlightControlFlag(t *testing.T) {
	p := newPanel(t)

	get(p, "/activate", nil)
	assert.True(t, p.Store.FlightControl.Get())

	get(p, "/deactivate", nil)
	assert.False(t, p.Store.FlightControl.Get())

	get(p, "/activate", nil)
	get(p, "/calibrate", nil)
	assert.False(t, p.Store.FlightControl.Get())
	assert.True(t, p.Store.Calibrate.Get())
}

func TestRootDoesNotTouchState(t *testing.T) {
	p := newPanel(t)
	before := p.Store.Snapshot()

	get(p, "/", nil)
	get(p, "/nope", nil)

	assert.Equal(t, before, p.Store.Snapshot())
}

func TestSetSurfaces(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"positive", "45", 45},
		{"negative", "-90", -90},
		{"upper bound", "90", 90},
		{"padded", " 12 ", 12},
		{"too large", "91", 0},
		{"too small", "-91", 0},
		{"not a number", "left", 0},
		{"fraction", "1.5", 0},
		{"missing", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPanel(t)
			q := url.Values{"value": {tt.value}}

			resp := get(p, "/set_rudder", q)
			assert.Equal(t, http.StatusOK, resp.Status)
			assert.Equal(t, tt.want, p.Store.Rudder.Get())

			get(p, "/set_elevator", q)
			assert.Equal(t, tt.want, p.Store.Elevator.Get())
		})
	}
}

func TestSetGains(t *testing.T) {
	p := newPanel(t)

	get(p, "/set_rudder_gain", url.Values{"value": {"1.75"}})
	get(p, "/set_elevator_gain", url.Values{"value": {"0"}})
	assert.Equal(t, 1.75, p.Store.RudderGain.Get())
	assert.Equal(t, 0.0, p.Store.ElevatorGain.Get())

	for _, bad := range []string{"-1", "NaN", "Inf", "fast", ""} {
		get(p, "/set_rudder_gain", url.Values{"value": {bad}})
		assert.Equal(t, 1.75, p.Store.RudderGain.Get(), bad)
	}

	get(p, "/reset_gains", nil)
	assert.Equal(t, share.DefaultGain, p.Store.RudderGain.Get())
	assert.Equal(t, share.DefaultGain, p.Store.ElevatorGain.Get())
}

func TestState(t *testing.T) {
	p := newPanel(t)
	get(p, "/activate", nil)
	get(p, "/set_rudder", url.Values{"value": {"-20"}})

	resp := get(p, "/state", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, route.ContentJSON, resp.ContentType)

	var got share.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body, &got))
	assert.Equal(t, p.Store.Snapshot(), got)
	assert.True(t, got.FlightControl)
	assert.Equal(t, -20, got.Rudder)
}

func TestSampleCSV(t *testing.T) {
	lines := strings.Split(strings.TrimSuffix(SampleCSV(), "\n"), "\n")
	require.Len(t, lines, 21)

	assert.Equal(t, "Time, Jumpiness", lines[0])
	assert.Equal(t, "0,0.000", lines[1])
	assert.Equal(t, "1,0.183", lines[2])
	assert.Equal(t, "2,0.360", lines[3])
	assert.Equal(t, "19,-0.349", lines[20])
}
