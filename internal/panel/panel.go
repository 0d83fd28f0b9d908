// Package panel wires the control-panel routes to the shared flags.
package panel

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/airheads/glider-panel/internal/page"
	"github.com/airheads/glider-panel/internal/route"
	"github.com/airheads/glider-panel/internal/share"
)

// Panel is the single per-process context: the route table plus the flags
// and renderer its handlers use. The polling task and the handlers share it
// by reference.
type Panel struct {
	Store  *share.Store
	Pages  *page.Renderer
	Routes *route.Dispatcher
}

// New builds the panel and registers its routes. A duplicate path is a
// configuration error and is returned.
func New(store *share.Store, pages *page.Renderer) (*Panel, error) {
	p := &Panel{
		Store:  store,
		Pages:  pages,
		Routes: route.NewDispatcher(),
	}

	routes := []struct {
		path string
		h    route.Handler
	}{
		{"/", p.handleRoot},
		{"/activate", p.handleActivate},
		{"/deactivate", p.handleDeactivate},
		{"/calibrate", p.handleCalibrate},
		{"/set_rudder", p.handleSetRudder},
		{"/set_elevator", p.handleSetElevator},
		{"/set_rudder_gain", p.handleSetRudderGain},
		{"/set_elevator_gain", p.handleSetElevatorGain},
		{"/reset_gains", p.handleResetGains},
		{"/data", p.handleData},
		{"/state", p.handleState},
	}
	for _, r := range routes {
		if err := p.Routes.Register(r.path, r.h); err != nil {
			return nil, fmt.Errorf("panel routes: %w", err)
		}
	}
	return p, nil
}

func (p *Panel) handleRoot(route.Request) route.Response {
	return route.HTML(p.Pages.Root())
}

func (p *Panel) handleActivate(route.Request) route.Response {
	p.Store.FlightControl.Set(true)
	return route.HTML(p.Pages.Redirect())
}

func (p *Panel) handleDeactivate(route.Request) route.Response {
	p.Store.FlightControl.Set(false)
	return route.HTML(p.Pages.Redirect())
}

// Calibration always drops out of flight control.
func (p *Panel) handleCalibrate(route.Request) route.Response {
	p.Store.Calibrate.Set(true)
	p.Store.FlightControl.Set(false)
	return route.HTML(p.Pages.Redirect())
}

func (p *Panel) handleSetRudder(r route.Request) route.Response {
	p.setSurface(r, p.Store.Rudder)
	return route.HTML(p.Pages.Redirect())
}

func (p *Panel) handleSetElevator(r route.Request) route.Response {
	p.setSurface(r, p.Store.Elevator)
	return route.HTML(p.Pages.Redirect())
}

func (p *Panel) handleSetRudderGain(r route.Request) route.Response {
	p.setGain(r, p.Store.RudderGain)
	return route.HTML(p.Pages.Redirect())
}

func (p *Panel) handleSetElevatorGain(r route.Request) route.Response {
	p.setGain(r, p.Store.ElevatorGain)
	return route.HTML(p.Pages.Redirect())
}

func (p *Panel) handleResetGains(route.Request) route.Response {
	p.Store.ResetGains()
	return route.HTML(p.Pages.Redirect())
}

func (p *Panel) handleData(route.Request) route.Response {
	return route.Text(http.StatusOK, SampleCSV())
}

func (p *Panel) handleState(route.Request) route.Response {
	body, err := json.Marshal(p.Store.Snapshot())
	if err != nil {
		// Snapshot only holds bools, ints and finite floats
		return route.Text(http.StatusInternalServerError, err.Error())
	}
	return route.Response{Status: http.StatusOK, ContentType: route.ContentJSON, Body: body}
}

// Bad or missing values are ignored; the page still redirects.
func (p *Panel) setSurface(r route.Request, f *share.Flag[int]) {
	raw := strings.TrimSpace(r.Query.Get("value"))
	v, err := strconv.Atoi(raw)
	if err != nil || v < -share.SurfaceLimit || v > share.SurfaceLimit {
		log.Printf("[HTTP] Ignoring %s value %q for %s", r.Path, raw, f.Name())
		return
	}
	f.Set(v)
}

func (p *Panel) setGain(r route.Request, f *share.Flag[float64]) {
	raw := strings.TrimSpace(r.Query.Get("value"))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		log.Printf("[HTTP] Ignoring %s value %q for %s", r.Path, raw, f.Name())
		return
	}
	f.Set(v)
}
