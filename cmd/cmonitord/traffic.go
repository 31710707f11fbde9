package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// monitorStatus is the body returned by the monitor endpoint
type monitorStatus struct {
	Status      string     `json:"status"`
	Interval    string     `json:"interval"`
	LastCycleAt *time.Time `json:"last_cycle_at,omitempty"`
}

// RegisterTrafficRoutes registers the traffic summary, arbitration and
// monitor lifecycle routes
func RegisterTrafficRoutes(router *mux.Router, m *metricsContext) {
	router.Handle("/traffic", m.mmw.HandlerFunc(GetTrafficSummary, "summary")).Methods("GET")
	router.Handle("/active/next", m.mmw.HandlerFunc(SwitchToNextPriority, "switch")).Methods("POST")
	router.Handle("/active", m.mmw.HandlerFunc(DeactivateAll, "deactivate")).Methods("DELETE")
	router.Handle("/monitor", m.mmw.HandlerFunc(GetMonitor, "monitor.status")).Methods("GET")
	router.Handle("/monitor/start", m.mmw.HandlerFunc(StartMonitoring, "monitor.start")).Methods("POST")
	router.Handle("/monitor/stop", m.mmw.HandlerFunc(StopMonitoring, "monitor.stop")).Methods("POST")
}

// GetTrafficSummary returns all selections, their latest snapshots, the
// active resource and the loop state
func GetTrafficSummary(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	api := GetAPIContext(r)

	summary, err := api.monitor.TrafficSummary()
	if err != nil {
		hr.JSONError(http.StatusInternalServerError, err)
		return
	}
	hr.JSON(http.StatusOK, summary)
}

// SwitchToNextPriority hands the active slot to the next selection by
// priority alone, ignoring observed activity
func SwitchToNextPriority(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	api := GetAPIContext(r)

	result, err := api.monitor.Activator().SwitchToNextPriority()
	if err != nil {
		hr.JSONSurveillanceError(err)
		return
	}
	if result == nil {
		hr.JSONMsg(http.StatusOK, "nothing to switch to")
		return
	}
	hr.JSON(http.StatusOK, result)
}

// DeactivateAll clears the active flag on every selection
func DeactivateAll(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	api := GetAPIContext(r)

	if err := api.monitor.Activator().Deactivate(); err != nil {
		hr.JSONError(http.StatusInternalServerError, err)
		return
	}
	hr.JSONMsg(http.StatusOK, "deactivated")
}

// GetMonitor reports the loop state
func GetMonitor(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	api := GetAPIContext(r)

	status := monitorStatus{
		Status:   string(api.monitor.Status()),
		Interval: api.monitor.Interval().String(),
	}
	if last := api.monitor.LastCycle(); !last.IsZero() {
		status.LastCycleAt = &last
	}
	hr.JSON(http.StatusOK, status)
}

// StartMonitoring starts the surveillance loop; idempotent
func StartMonitoring(w http.ResponseWriter, r *http.Request) {
	api := GetAPIContext(r)
	api.monitor.Start()
	GetMonitor(w, r)
}

// StopMonitoring stops the surveillance loop; idempotent
func StopMonitoring(w http.ResponseWriter, r *http.Request) {
	api := GetAPIContext(r)
	api.monitor.Stop()
	GetMonitor(w, r)
}
