package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	surveillance "github.com/Iram04hack/network-management-system-sub001"
	logrusmiddleware "github.com/bakins/logrus-middleware"
	recovery "github.com/bakins/net-http-recover"
	"github.com/gorilla/context"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	log "github.com/sirupsen/logrus"
	"github.com/tylerb/graceful"
)

const apiCtxKey string = "surveillanceAPIContext"

type (
	// apiContext bundles the dependencies handlers need
	apiContext struct {
		ctx     *surveillance.Context
		repo    surveillance.ResourceRepository
		monitor *surveillance.Monitor
	}

	// HTTPResponse is a wrapper for http.ResponseWriter which provides access
	// to several convenience methods
	HTTPResponse struct {
		http.ResponseWriter
	}

	// HTTPError contains information for http error responses
	HTTPError struct {
		Message string   `json:"message"`
		Code    int      `json:"code"`
		Stack   []string `json:"stack"`
	}
)

// Run starts the server
func Run(port uint, api *apiContext, m *metricsContext) *graceful.Server {
	router := mux.NewRouter()
	router.StrictSlash(true)

	// Common middleware applied to every request
	logrusMiddleware := logrusmiddleware.Middleware{
		Name: "cmonitord",
	}
	commonMiddleware := alice.New(
		func(h http.Handler) http.Handler {
			return logrusMiddleware.Handler(h, "")
		},
		handlers.CompressHandler,
		func(h http.Handler) http.Handler {
			return recovery.Handler(os.Stderr, h, true)
		},
		func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				context.Set(r, apiCtxKey, api)
				h.ServeHTTP(w, r)
			})
		},
	)

	RegisterSelectionRoutes("/selections", router, m)
	RegisterTrafficRoutes(router, m)

	router.HandleFunc("/metrics",
		func(w http.ResponseWriter, r *http.Request) {
			hr := HTTPResponse{w}
			hr.JSON(http.StatusOK, m.sink)
		})

	server := &graceful.Server{
		Timeout: 5 * time.Second,
		Server: &http.Server{
			Addr:           fmt.Sprintf(":%d", port),
			Handler:        commonMiddleware.Then(router),
			MaxHeaderBytes: 1 << 20,
		},
	}
	go listenAndServe(server)
	return server
}

func listenAndServe(server *graceful.Server) {
	if err := server.ListenAndServe(); err != nil {
		// Ignore the error from closing the listener, which is involved in the
		// graceful shutdown
		if !strings.Contains(err.Error(), "use of closed network connection") {
			log.WithField("error", err).Fatal("server error")
		}
	}
}

// JSON writes appropriate headers and JSON body to the http response
func (hr *HTTPResponse) JSON(code int, obj interface{}) {
	hr.Header().Set("Content-Type", "application/json")
	hr.WriteHeader(code)
	encoder := json.NewEncoder(hr)
	if err := encoder.Encode(obj); err != nil {
		hr.JSONError(http.StatusInternalServerError, err)
	}
}

// JSONError prepares an HTTPError with a stack trace and writes it with
// HTTPResponse.JSON
func (hr *HTTPResponse) JSONError(code int, err error) {
	httpError := &HTTPError{
		Message: err.Error(),
		Code:    code,
		Stack:   make([]string, 0, 4),
	}
	for i := 1; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		httpError.Stack = append(httpError.Stack, fmt.Sprintf("%s:%d (0x%x)", file, line, pc))
	}
	hr.JSON(code, httpError)
}

// JSONMsg is a convenience method to write a JSON response with just a message
// string
func (hr *HTTPResponse) JSONMsg(code int, msg string) {
	msgObj := map[string]string{
		"message": msg,
	}
	hr.JSON(code, msgObj)
}

// JSONSurveillanceError maps the surveillance error taxonomy to response
// codes: not found to 404, validation to 400, everything else to 500.
func (hr *HTTPResponse) JSONSurveillanceError(err error) {
	if surveillance.IsNotFound(err) {
		hr.JSONMsg(http.StatusNotFound, err.Error())
		return
	}
	if _, ok := err.(*surveillance.ValidationError); ok {
		hr.JSONMsg(http.StatusBadRequest, err.Error())
		return
	}
	hr.JSONError(http.StatusInternalServerError, err)
}

// GetAPIContext retrieves the apiContext for a request
func GetAPIContext(r *http.Request) *apiContext {
	if value := context.Get(r, apiCtxKey); value != nil {
		return value.(*apiContext)
	}
	return nil
}
