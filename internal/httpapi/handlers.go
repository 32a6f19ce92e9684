package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"vramd/internal/manager"
	"vramd/pkg/types"
)

// handleStatus godoc
// @Summary      Scheduler status
// @Description  GPU metrics, model table, VRAM budget and queue counts. Never waits on the admission queue.
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

// handleMetricsSummary godoc
// @Summary      GPU metrics summary
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.MetricsSummary
// @Router       /metrics/summary [get]
func (s *server) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.MetricsSummary())
}

// handleListModels godoc
// @Summary      List models
// @Description  Loaded models, optionally joined with every registry entry.
// @Tags         models
// @Produce      json
// @Param        provider          query  string  false  "Filter by provider"
// @Param        include_unloaded  query  bool    false  "Include registry entries that are not loaded"
// @Success      200  {object}  types.ModelsResponse
// @Failure      400  {object}  types.ErrorResponse
// @Router       /models [get]
func (s *server) handleListModels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	include := false
	if v := q.Get("include_unloaded"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "include_unloaded must be a boolean")
			return
		}
		include = b
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: s.svc.ListModels(q.Get("provider"), include)})
}

// handleLoad godoc
// @Summary      Request a model load
// @Description  Queues a load and returns immediately with a request id. A model that is already loaded is touched and returned with already_loaded=true. With wait=1 the call blocks until the request is terminal.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        body  body   types.LoadRequest  true  "Load request"
// @Param        wait  query  bool               false "Wait for the outcome"
// @Success      200  {object}  types.LoadResponse
// @Success      202  {object}  types.LoadResponse
// @Failure      400  {object}  types.ErrorResponse
// @Failure      404  {object}  types.ErrorResponse
// @Failure      409  {object}  types.RequestOutcome
// @Failure      415  {object}  types.ErrorResponse
// @Failure      429  {object}  types.ErrorResponse
// @Router       /models/load [post]
func (s *server) handleLoad(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.ModelID = strings.TrimSpace(req.ModelID)
	req.Provider = strings.TrimSpace(req.Provider)
	if req.ModelID == "" || req.Provider == "" {
		writeJSONError(w, http.StatusBadRequest, "model_id and provider are required")
		return
	}
	ticket, err := s.svc.RequestLoad(manager.LoadParams{
		Key:       types.ModelKey{Provider: req.Provider, ModelID: req.ModelID},
		Priority:  req.Priority,
		SessionID: strings.TrimSpace(req.SessionID),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := types.LoadResponse{
		RequestID:     ticket.RequestID,
		ModelKey:      ticket.Key.String(),
		AlreadyLoaded: ticket.AlreadyLoaded,
		Message:       "load request queued",
	}
	if ticket.AlreadyLoaded {
		resp.Message = "model already loaded"
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); !wait {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	ctx, cancel := waitContext(r.Context())
	defer cancel()
	out, err := s.svc.Await(ctx, ticket.RequestID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if out.Err != nil {
		status = statusFor(out.Err)
	}
	writeJSON(w, status, toRequestOutcome(out))
}

// handleUnload godoc
// @Summary      Unload a model
// @Description  Unloads through the coordinator. Sticky providers are refused with 422; session-protected models need force=true.
// @Tags         models
// @Produce      json
// @Param        provider  path   string  true   "Provider"
// @Param        model_id  path   string  true   "Model id (may contain slashes)"
// @Param        force     query  bool    false  "Unload even when sessions reference the model"
// @Success      200  {object}  types.UnloadResponse
// @Failure      404  {object}  types.UnloadResponse
// @Failure      409  {object}  types.UnloadResponse
// @Failure      422  {object}  types.UnloadResponse
// @Failure      502  {object}  types.UnloadResponse
// @Router       /models/unload/{provider}/{model_id} [post]
func (s *server) handleUnload(w http.ResponseWriter, r *http.Request) {
	key, ok := modelKeyParam(w, r)
	if !ok {
		return
	}
	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "force must be a boolean")
			return
		}
		force = b
	}
	ctx, cancel := waitContext(r.Context())
	defer cancel()
	if err := s.svc.UnloadModel(ctx, key, force); err != nil {
		writeJSON(w, statusFor(err), types.UnloadResponse{Success: false, ModelKey: key.String(), Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, types.UnloadResponse{Success: true, ModelKey: key.String(), Message: "model unloaded"})
}

// handleTouch godoc
// @Summary      Mark a model as used
// @Description  Resets the idle timer of a loaded model.
// @Tags         models
// @Produce      json
// @Param        provider  path  string  true  "Provider"
// @Param        model_id  path  string  true  "Model id"
// @Success      200  {object}  types.TouchResponse
// @Failure      404  {object}  types.TouchResponse
// @Router       /models/touch/{provider}/{model_id} [post]
func (s *server) handleTouch(w http.ResponseWriter, r *http.Request) {
	key, ok := modelKeyParam(w, r)
	if !ok {
		return
	}
	if !s.svc.Touch(key) {
		writeJSON(w, http.StatusNotFound, types.TouchResponse{ModelKey: key.String(), Message: key.String() + " is not loaded"})
		return
	}
	writeJSON(w, http.StatusOK, types.TouchResponse{Success: true, ModelKey: key.String(), Message: "touched"})
}

// handleOptimize godoc
// @Summary      Evict idle models
// @Description  Unloads every idle, unprotected, unload-capable model. Failed unloads are listed in errors and the pass continues.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.OptimizeResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /optimize [post]
func (s *server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := waitContext(r.Context())
	defer cancel()
	res, err := s.svc.Optimize(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := types.OptimizeResponse{
		Unloaded: keyStrings(res.Unloaded),
		Errors:   keyStrings(res.Errors),
	}
	switch {
	case len(resp.Unloaded) == 0 && len(resp.Errors) == 0:
		resp.Message = "no idle models to unload"
	case len(resp.Errors) == 0:
		resp.Message = fmt.Sprintf("unloaded %d idle model(s)", len(resp.Unloaded))
	default:
		resp.Message = fmt.Sprintf("unloaded %d idle model(s), %d failed", len(resp.Unloaded), len(resp.Errors))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleQueue godoc
// @Summary      Admission queue
// @Tags         queue
// @Produce      json
// @Success      200  {object}  types.QueueStatus
// @Router       /queue [get]
func (s *server) handleQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.QueueStatus())
}

// handleRequestStatus godoc
// @Summary      Request outcome
// @Tags         queue
// @Produce      json
// @Param        request_id  path  string  true  "Request id"
// @Success      200  {object}  types.RequestOutcome
// @Failure      404  {object}  types.ErrorResponse
// @Router       /queue/{request_id} [get]
func (s *server) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestID")
	out, ok := s.svc.RequestStatus(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "request not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, toRequestOutcome(out))
}

// handleCancelRequest godoc
// @Summary      Withdraw a queued request
// @Description  Only requests that have not started can be withdrawn.
// @Tags         queue
// @Produce      json
// @Param        request_id  path  string  true  "Request id"
// @Success      200  {object}  types.RequestOutcome
// @Failure      404  {object}  types.ErrorResponse
// @Failure      409  {object}  types.ErrorResponse
// @Router       /queue/{request_id} [delete]
func (s *server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestID")
	if err := s.svc.CancelRequest(id); err != nil {
		writeServiceError(w, err)
		return
	}
	out, _ := s.svc.RequestStatus(id)
	writeJSON(w, http.StatusOK, toRequestOutcome(out))
}

// handleSessions godoc
// @Summary      Session table
// @Tags         sessions
// @Produce      json
// @Success      200  {object}  types.SessionsResponse
// @Router       /sessions [get]
func (s *server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.SessionsResponse{Sessions: s.svc.Sessions()})
}

// handleReleaseSession godoc
// @Summary      Release a session
// @Description  Drops every model reference held by the session.
// @Tags         sessions
// @Produce      json
// @Param        session_id  path  string  true  "Session id"
// @Success      200  {object}  types.ReleaseSessionResponse
// @Router       /sessions/{session_id} [delete]
func (s *server) handleReleaseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	writeJSON(w, http.StatusOK, types.ReleaseSessionResponse{SessionID: id, Released: s.svc.ReleaseSession(id)})
}

// handleRegistry godoc
// @Summary      Model registry
// @Tags         registry
// @Produce      json
// @Success      200  {object}  types.RegistryResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /registry [get]
func (s *server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	if s.reg == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "registry not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.reg.Response())
}

// handleRegistryReload godoc
// @Summary      Reload the registry file
// @Description  A file that cannot be read or parsed yields the built-in registry with degraded=true.
// @Tags         registry
// @Produce      json
// @Success      200  {object}  types.RegistryResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /registry/reload [post]
func (s *server) handleRegistryReload(w http.ResponseWriter, r *http.Request) {
	if s.reg == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "registry not configured")
		return
	}
	s.reg.Reload()
	writeJSON(w, http.StatusOK, s.reg.Response())
}

// handleProcesses godoc
// @Summary      GPU processes
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.ProcessesResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /processes [get]
func (s *server) handleProcesses(w http.ResponseWriter, r *http.Request) {
	if s.tel == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "telemetry not configured")
		return
	}
	snap := s.tel.Latest()
	procs := snap.Processes
	if procs == nil {
		procs = []types.GpuProcess{}
	}
	writeJSON(w, http.StatusOK, types.ProcessesResponse{IsMock: snap.Metrics.IsMock, Processes: procs})
}

// handleReady godoc
// @Summary      Readiness
// @Description  200 "ready", 200 "degraded" when telemetry or the registry fell back, 503 when the coordinator is not running. verbose=1 returns JSON with provider reachability.
// @Tags         health
// @Produce      plain
// @Param        verbose  query  bool  false  "Return a JSON report"
// @Success      200  {string}  string  "ready"
// @Failure      503  {string}  string  "not running"
// @Router       /readyz [get]
func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	h := s.svc.Health(r.Context())
	status, word := http.StatusOK, "ready"
	switch {
	case !h.Ready():
		status, word = http.StatusServiceUnavailable, "not running"
	case h.TelemetryDegraded || h.RegistryDegraded:
		word = "degraded"
	}
	if v, _ := strconv.ParseBool(r.URL.Query().Get("verbose")); v {
		writeJSON(w, status, types.HealthResponse{
			Status:            word,
			TelemetryDegraded: h.TelemetryDegraded,
			RegistryDegraded:  h.RegistryDegraded,
			CoordinatorAlive:  h.CoordinatorAlive,
			Providers:         h.Providers,
		})
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(word))
}

// modelKeyParam extracts {provider}/* from the route. Model ids keep their
// slashes; percent-encoded ids are decoded.
func modelKeyParam(w http.ResponseWriter, r *http.Request) (types.ModelKey, bool) {
	provider := chi.URLParam(r, "provider")
	id, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid model id encoding")
		return types.ModelKey{}, false
	}
	if provider == "" || id == "" {
		writeJSONError(w, http.StatusBadRequest, "provider and model_id are required")
		return types.ModelKey{}, false
	}
	return types.ModelKey{Provider: provider, ModelID: id}, true
}

func keyStrings(keys []types.ModelKey) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	return out
}

func toRequestOutcome(o manager.Outcome) types.RequestOutcome {
	ro := types.RequestOutcome{
		RequestID:     o.RequestID,
		Status:        string(o.Status),
		AlreadyLoaded: o.AlreadyLoaded,
	}
	if o.Key != (types.ModelKey{}) {
		ro.ModelKey = o.Key.String()
	}
	if len(o.Evicted) > 0 {
		ro.Evicted = keyStrings(o.Evicted)
	}
	if o.Err != nil {
		ro.ErrorKind = manager.ErrorKind(o.Err)
		ro.Message = o.Err.Error()
	}
	if !o.CompletedAt.IsZero() {
		ro.CompletedAt = o.CompletedAt.Unix()
	}
	return ro
}
