package main

import (
	"encoding/json"
	"net/http"

	surveillance "github.com/Iram04hack/network-management-system-sub001"
	"github.com/gorilla/context"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
)

const selectionKey string = "surveillanceSelection"

// selectionRequest is the body for creating or updating a selection
type selectionRequest struct {
	ResourceID   string            `json:"resource_id"`
	Priority     int               `json:"priority"`
	AutoActivate bool              `json:"auto_activate"`
	Metadata     map[string]string `json:"metadata"`
}

// RegisterSelectionRoutes registers the selection routes and handlers
func RegisterSelectionRoutes(prefix string, router *mux.Router, m *metricsContext) {
	selectionMiddleware := alice.New(
		loadSelection,
	)

	router.Handle(prefix, m.mmw.HandlerFunc(ListSelections, "list")).Methods("GET")
	router.Handle(prefix, m.mmw.HandlerFunc(CreateSelection, "create")).Methods("POST")

	sub := router.PathPrefix(prefix).Subrouter()
	sub.Handle("/{resourceID}", selectionMiddleware.Append(m.mmw.HandlerWrapper("get")).ThenFunc(GetSelection)).Methods("GET")
	sub.Handle("/{resourceID}", selectionMiddleware.Append(m.mmw.HandlerWrapper("destroy")).ThenFunc(DestroySelection)).Methods("DELETE")
	sub.Handle("/{resourceID}/activate", selectionMiddleware.Append(m.mmw.HandlerWrapper("activate")).ThenFunc(ActivateSelection)).Methods("POST")
	sub.Handle("/{resourceID}/traffic", selectionMiddleware.Append(m.mmw.HandlerWrapper("traffic")).ThenFunc(DetectTraffic)).Methods("GET")
}

// loadSelection is middleware to load a selection into the request context
func loadSelection(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hr := HTTPResponse{w}
		api := GetAPIContext(r)
		vars := mux.Vars(r)

		selection, err := api.ctx.Selection(vars["resourceID"])
		if err != nil {
			hr.JSONSurveillanceError(err)
			return
		}
		context.Set(r, selectionKey, selection)
		h.ServeHTTP(w, r)
	})
}

// GetRequestSelection retrieves the selection loaded by the middleware
func GetRequestSelection(r *http.Request) *surveillance.Selection {
	if value := context.Get(r, selectionKey); value != nil {
		return value.(*surveillance.Selection)
	}
	return nil
}

// ListSelections gets a list of all selections
func ListSelections(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	api := GetAPIContext(r)

	selections, err := api.ctx.Selections()
	if err != nil {
		hr.JSONError(http.StatusInternalServerError, err)
		return
	}
	hr.JSON(http.StatusOK, selections)
}

// CreateSelection places a resource under surveillance
func CreateSelection(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	api := GetAPIContext(r)

	req := selectionRequest{Priority: surveillance.MaxPriority}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hr.JSONMsg(http.StatusBadRequest, err.Error())
		return
	}
	if req.ResourceID == "" {
		hr.JSONMsg(http.StatusBadRequest, "missing resource_id")
		return
	}

	selection, err := api.ctx.AddSelection(api.repo, req.ResourceID, req.Priority, req.AutoActivate, req.Metadata)
	if err != nil {
		hr.JSONSurveillanceError(err)
		return
	}
	hr.JSON(http.StatusCreated, selection)
}

// GetSelection gets a particular selection
func GetSelection(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	hr.JSON(http.StatusOK, GetRequestSelection(r))
}

// DestroySelection takes a resource out of surveillance
func DestroySelection(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	api := GetAPIContext(r)
	selection := GetRequestSelection(r)

	if _, err := api.ctx.RemoveSelection(selection.ResourceID); err != nil {
		hr.JSONSurveillanceError(err)
		return
	}
	hr.JSON(http.StatusOK, selection)
}

// ActivateSelection promotes a selection to active and starts its nodes
func ActivateSelection(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	api := GetAPIContext(r)
	selection := GetRequestSelection(r)

	result, err := api.monitor.Activator().Activate(selection)
	if err != nil {
		hr.JSONSurveillanceError(err)
		return
	}
	hr.JSON(http.StatusOK, result)
}

// DetectTraffic runs an on-demand cache-bypassing probe for one resource
func DetectTraffic(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	api := GetAPIContext(r)
	selection := GetRequestSelection(r)

	snapshot, err := api.monitor.Probe().Refresh(selection.ResourceID)
	if err != nil {
		hr.JSONSurveillanceError(err)
		return
	}
	hr.JSON(http.StatusOK, snapshot)
}
