// Package httpapi exposes the model lifecycle over HTTP: execute requests
// under /v1, status and cache management, health probes, and Prometheus
// metrics. The package holds no model state of its own; everything goes
// through the Service interface.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"inferd/pkg/types"
)

// Service defines what the HTTP layer needs from the model manager.
type Service interface {
	Infer(ctx context.Context, id string, task types.TaskType, input any, params map[string]any, forceReload bool) (any, error)
	Fetch(ctx context.Context, id string) (string, error)
	PurgeAll() int
	Status() types.StatusResponse
	UsagePercent() float64
	DeviceName() string
	Ready() bool
}

type api struct {
	svc Service
}

// NewMux assembles the router: lifecycle endpoints under /v1, health
// probes, the Prometheus endpoint, and optional swagger docs.
func NewMux(svc Service) http.Handler {
	a := &api{svc: svc}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/execute/{task_type}", a.handleExecute)
		r.Get("/models/status", a.handleStatus)
		r.Post("/models/fetch", a.handleFetch)
		r.Delete("/models/purge", a.handlePurge)
	})
	r.Get("/health", a.handleHealth)
	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Get("/metrics", metricsHandler(svc))
	MountSwagger(r)

	return r
}

// decodeJSON enforces the content type and body cap shared by the POST
// endpoints, then decodes into v. It writes the error response itself and
// returns false when the request is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// handleExecute godoc
// @Summary      Run one inference request
// @Description  Brings the model to the loaded state first: downloads the artifact if it is missing and evicts idle models when the device is full.
// @Tags         execute
// @Accept       json
// @Produce      json
// @Param        task_type  path      string                true  "Task kind"  Enums(text, image, audio_tts, audio_stt)
// @Param        request    body      types.ExecuteRequest  true  "Execute request"
// @Success      200        {object}  types.ExecuteResponse
// @Failure      400        {object}  types.ErrorResponse
// @Failure      404        {object}  types.ErrorResponse
// @Failure      422        {object}  types.ErrorResponse
// @Failure      501        {object}  types.ErrorResponse
// @Failure      507        {object}  types.ErrorResponse
// @Router       /v1/execute/{task_type} [post]
func (a *api) handleExecute(w http.ResponseWriter, r *http.Request) {
	task, ok := types.ParseTaskType(chi.URLParam(r, "task_type"))
	if !ok {
		writeJSONError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("unknown task type %q", chi.URLParam(r, "task_type")))
		return
	}
	var req types.ExecuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ModelID) == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "model_id is required")
		return
	}
	if req.Input == nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "input is required")
		return
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	logExecStart(r, lvl, req.ModelID, task)

	ctx, cancel := joinContexts(r.Context(), serverBaseCtx)
	defer cancel()
	if executeTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, time.Duration(executeTimeout)*time.Second)
		defer tcancel()
	}

	result, err := a.svc.Infer(ctx, req.ModelID, task, req.Input, req.Params, req.ForceReload)
	if err != nil {
		// Nobody is listening after a client disconnect or a shutdown.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := errorStatus(err)
		writeJSONError(w, status, err.Error())
		logExecEnd(r, lvl, status, start, err)
		return
	}

	writeJSON(w, http.StatusOK, types.ExecuteResponse{
		ModelID:          req.ModelID,
		TaskType:         task,
		Result:           result,
		VRAMUsagePercent: a.svc.UsagePercent(),
	})
	logExecEnd(r, lvl, http.StatusOK, start, nil)
}

// handleStatus godoc
// @Summary      Report all known models
// @Description  Registry entries merged with artifacts found on disk, plus usage and lifetime counters.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /v1/models/status [get]
func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Status())
}

// handleFetch godoc
// @Summary      Pre-fetch a model artifact
// @Description  Downloads the artifact into the local cache without loading the model.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        request  body      types.FetchRequest  true  "Fetch request"
// @Success      200      {object}  types.FetchResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ErrorResponse
// @Failure      422      {object}  types.ErrorResponse
// @Router       /v1/models/fetch [post]
func (a *api) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req types.FetchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ModelID) == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "model_id is required")
		return
	}

	ctx, cancel := joinContexts(r.Context(), serverBaseCtx)
	defer cancel()
	path, err := a.svc.Fetch(ctx, req.ModelID)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		writeJSONError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.FetchResponse{
		ModelID: req.ModelID,
		Path:    path,
		Message: "model cached",
	})
}

// handlePurge godoc
// @Summary      Unload every model
// @Description  Releases all device memory. Cached artifacts stay on disk.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.PurgeResponse
// @Router       /v1/models/purge [delete]
func (a *api) handlePurge(w http.ResponseWriter, r *http.Request) {
	n := a.svc.PurgeAll()
	writeJSON(w, http.StatusOK, types.PurgeResponse{
		Message: fmt.Sprintf("purged %d loaded models", n),
	})
}

// handleHealth godoc
// @Summary      Service health
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /health [get]
func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:           "ok",
		Device:           a.svc.DeviceName(),
		VRAMUsagePercent: a.svc.UsagePercent(),
	})
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *api) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.svc.Ready() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
