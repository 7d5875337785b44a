package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"heartrisk/ml"
	"heartrisk/monitoring"
)

const sessionPath = "/api/ws/session"

// fieldLabels are the form captions of the dataset columns.
var fieldLabels = map[string]string{
	"age":      "Age",
	"sex":      "Sex",
	"cp":       "Chest Pain Type",
	"trtbps":   "Resting Blood Pressure (mm Hg)",
	"chol":     "Serum Cholesterol (mg/dl)",
	"fbs":      "Fasting Blood Sugar > 120 mg/dl",
	"restecg":  "Resting ECG Results",
	"thalachh": "Maximum Heart Rate Achieved",
	"exng":     "Exercise Induced Angina",
	"oldpeak":  "ST Depression Induced by Exercise",
	"slp":      "Slope of Peak Exercise ST Segment",
	"caa":      "Number of Major Vessels (0-3)",
	"thall":    "Thalassemia",
}

type handlers struct {
	models    ModelSource
	modelPath string
	logger    *zap.Logger
	metrics   *monitoring.Collector
	upgrader  websocket.Upgrader
}

func newHandlers(cfg ServerConfig, models ModelSource, logger *zap.Logger) *handlers {
	origins := cfg.AllowedOrigins
	metrics := monitoring.NewCollector()
	metrics.Describe("http_requests_total", "HTTP requests by route and status.")
	metrics.Describe("http_request_seconds", "HTTP request latency by route.")
	metrics.Describe("predictions_total", "Predictions served by source and label.")
	metrics.Describe("sessions_total", "Prediction sessions opened.")
	return &handlers{
		models:    models,
		modelPath: cfg.ModelPath,
		logger:    logger,
		metrics:   metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(origins, origin)
			},
		},
	}
}

func (h *handlers) register(mux *http.ServeMux) {
	h.handle(mux, "GET", "/api/health", h.handleHealth)
	h.handle(mux, "GET", "/api/model", h.handleModel)
	h.handle(mux, "GET", "/api/form", h.handleForm)
	h.handle(mux, "GET", "/api/metrics", h.handleMetrics)
	h.handle(mux, "POST", "/api/predict", h.handlePredict)
	h.handle(mux, "GET", sessionPath, h.handleSession)
}

// handle registers fn and records request counts and latency under route.
func (h *handlers) handle(mux *http.ServeMux, method, route string, fn http.HandlerFunc) {
	mux.HandleFunc(method+" "+route, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		fn(wrapped, r)

		h.metrics.IncrCounter("http_requests_total", map[string]string{
			"route":  route,
			"status": strconv.Itoa(wrapped.statusCode),
		})
		h.metrics.Observe("http_request_seconds", time.Since(start).Seconds(), map[string]string{"route": route})
	})
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMetrics reports the collector as JSON, or in the Prometheus text
// format with ?format=prometheus.
func (h *handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "prometheus" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Write([]byte(h.metrics.ExportPrometheus()))
		return
	}
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

// modelInfo describes a loaded artifact.
type modelInfo struct {
	Path      string          `json:"path"`
	Type      string          `json:"type"`
	Features  []string        `json:"features"`
	Target    string          `json:"target"`
	Classes   []int           `json:"classes"`
	Trees     int             `json:"trees"`
	MaxDepth  int             `json:"max_depth"`
	Params    ml.ForestConfig `json:"params"`
	CreatedAt time.Time       `json:"created_at"`
}

func describeModel(path string, m *ml.Model) modelInfo {
	return modelInfo{
		Path:      path,
		Type:      m.Type,
		Features:  m.Features,
		Target:    m.Target,
		Classes:   m.Classes,
		Trees:     m.TreeCount(),
		MaxDepth:  m.Depth(),
		Params:    m.Params,
		CreatedAt: m.CreatedAt,
	}
}

func (h *handlers) handleModel(w http.ResponseWriter, r *http.Request) {
	model, ok := h.model(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, describeModel(h.modelPath, model))
}

type formField struct {
	Name    string         `json:"name"`
	Label   string         `json:"label"`
	Kind    string         `json:"kind"`
	Range   *ml.FieldRange `json:"range,omitempty"`
	Options []string       `json:"options,omitempty"`
}

type formSchema struct {
	Fields   []formField   `json:"fields"`
	Defaults ml.FeatureRow `json:"defaults"`
}

// handleForm describes the input form. It does not need a model.
func (h *handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	names := ml.FeatureNames()
	schema := formSchema{Fields: make([]formField, 0, len(names)), Defaults: ml.DefaultFeatureRow()}
	for _, name := range names {
		f := formField{Name: name, Label: fieldLabels[name]}
		if rg, ok := ml.FieldRangeOf(name); ok {
			f.Kind = "numeric"
			f.Range = &rg
		} else {
			f.Kind = "categorical"
			f.Options = ml.FieldOptions(name)
		}
		schema.Fields = append(schema.Fields, f)
	}
	writeJSON(w, http.StatusOK, schema)
}

// PredictResponse is the body returned by POST /api/predict.
type PredictResponse struct {
	RequestID  string        `json:"request_id,omitempty"`
	Input      ml.FeatureRow `json:"input"`
	Prediction ml.Prediction `json:"prediction"`
	Verdict    ml.Verdict    `json:"verdict"`
}

// handlePredict decodes a FeatureRow, clamps its numeric fields into the form
// ranges and predicts it. Fields left out keep their form defaults.
func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	row := ml.DefaultFeatureRow()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(&row)
	if err == nil {
		// exactly one object per request
		if extra := dec.Decode(&struct{}{}); extra != io.EOF {
			err = errors.New("unexpected data after the input object")
			var tooLarge *http.MaxBytesError
			if errors.As(extra, &tooLarge) {
				err = extra
			}
		}
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}
	row = row.Clamp()

	model, ok := h.model(w, r)
	if !ok {
		return
	}

	prediction, err := model.PredictRow(row)
	if err != nil {
		var inputErr *ml.PredictionInputError
		if errors.As(err, &inputErr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	h.recordPrediction("http", prediction.Label)
	writeJSON(w, http.StatusOK, PredictResponse{
		RequestID:  GetRequestID(r.Context()),
		Input:      row,
		Prediction: prediction,
		Verdict:    ml.VerdictFor(prediction.Label),
	})
}

// model fetches the serving model, answering 503 when the artifact cannot be
// loaded. No fallback prediction is ever made.
func (h *handlers) model(w http.ResponseWriter, r *http.Request) (*ml.Model, bool) {
	model, err := h.models.Get(h.modelPath)
	if err != nil {
		h.logger.Warn("model unavailable",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("path", h.modelPath),
			zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return nil, false
	}
	return model, true
}

func (h *handlers) recordPrediction(source string, label int) {
	h.metrics.IncrCounter("predictions_total", map[string]string{
		"source": source,
		"label":  strconv.Itoa(label),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
