package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"batchd/internal/wlm"
	"batchd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Models() []types.RegisteredModel
	Describe(name, version string) (types.ModelSnapshot, error)
	Submit(name, version string, j *types.Job) error
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	// ListModels godoc
	// @Summary  List registered models
	// @Produce  json
	// @Success  200 {object} types.ModelsResponse
	// @Router   /models [get]
	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsResponse{Models: svc.Models()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	describe := func(w http.ResponseWriter, r *http.Request, name, version string) {
		snap, err := svc.Describe(name, version)
		if err != nil {
			if wlm.IsModelNotFound(err) {
				writeJSONError(w, http.StatusNotFound, err.Error())
				return
			}
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	}

	// DescribeModel godoc
	// @Summary  Model-status snapshot for the default version
	// @Produce  json
	// @Param    name path string true "model name"
	// @Success  200 {object} types.ModelSnapshot
	// @Failure  404 {object} types.ErrorResponse
	// @Router   /models/{name} [get]
	r.Get("/models/{name}", func(w http.ResponseWriter, r *http.Request) {
		describe(w, r, chi.URLParam(r, "name"), "")
	})
	r.Get("/models/{name}/{version}", func(w http.ResponseWriter, r *http.Request) {
		describe(w, r, chi.URLParam(r, "name"), chi.URLParam(r, "version"))
	})

	invoke := func(w http.ResponseWriter, r *http.Request, name, version string, cmd types.WorkerCommand) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		if cmd == types.CmdPredict && r.URL.Query().Get("stream") == "true" {
			cmd = types.CmdStreamPredict
		}
		rid := middleware.GetReqID(r.Context())
		if rid == "" {
			rid = uuid.NewString()
		}
		job := &types.Job{
			ID:  uuid.NewString(),
			Cmd: cmd,
			Input: types.RequestInput{
				RequestID: rid,
				Headers:   map[string]string{"Content-Type": r.Header.Get("Content-Type")},
				Body:      body,
			},
			RecvTime: time.Now(),
		}
		start := time.Now()
		err = svc.Submit(name, version, job)
		lvl := requestLogLevel(r)
		if err != nil {
			switch {
			case wlm.IsModelNotFound(err):
				writeJSONError(w, http.StatusNotFound, err.Error())
			case wlm.IsTooBusy(err):
				IncrementBackpressure("queue_full_or_no_ticket")
				writeJSONError(w, http.StatusTooManyRequests, err.Error())
			default:
				writeJSONError(w, http.StatusInternalServerError, err.Error())
			}
			if lvl >= LevelInfo {
				logSubmit(rid, name, string(cmd), time.Since(start), err)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(types.SubmitResponse{JobID: job.ID, Status: "accepted"})
		if lvl >= LevelInfo {
			logSubmit(rid, name, string(cmd), time.Since(start), nil)
		}
	}

	// InvokeModel godoc
	// @Summary  Submit an inference job to the default version
	// @Accept   json
	// @Produce  json
	// @Param    name path string true "model name"
	// @Success  202 {object} types.SubmitResponse
	// @Failure  404 {object} types.ErrorResponse
	// @Failure  429 {object} types.ErrorResponse
	// @Router   /models/{name}/invoke [post]
	r.Post("/models/{name}/invoke", func(w http.ResponseWriter, r *http.Request) {
		invoke(w, r, chi.URLParam(r, "name"), "", types.CmdPredict)
	})
	r.Post("/models/{name}/{version}/invoke", func(w http.ResponseWriter, r *http.Request) {
		invoke(w, r, chi.URLParam(r, "name"), chi.URLParam(r, "version"), types.CmdPredict)
	})
	r.Post("/models/{name}/describe", func(w http.ResponseWriter, r *http.Request) {
		invoke(w, r, chi.URLParam(r, "name"), "", types.CmdDescribe)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", metricsHandler().ServeHTTP)

	MountSwagger(r)

	return r
}

func logSubmit(rid, model, cmd string, dur time.Duration, err error) {
	if zlog != nil {
		z := zlog.Info().Str("model", model).Str("cmd", cmd).Dur("dur", dur)
		if rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg("job submit")
		return
	}
	if err != nil {
		log.Printf("job submit model=%s cmd=%s dur=%s err=%v", model, cmd, dur, err)
		return
	}
	log.Printf("job submit model=%s cmd=%s dur=%s", model, cmd, dur)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
