package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/YuminosukeSato/vinoscore/pkg/log"
	"github.com/YuminosukeSato/vinoscore/predictor"
	"github.com/YuminosukeSato/vinoscore/wine"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// maxBodyBytes bounds form and JSON bodies.
const maxBodyBytes = 1 << 20

type fieldView struct {
	Slug  string
	Label string
	Min   string
	Max   string
	Step  string
	Value string
	Error string
}

type pageData struct {
	Fields []fieldView
	Result *wine.Assessment
	Folds  int
}

// Handlers serves the assessment page and the JSON API. It keeps no state
// between requests.
type Handlers struct {
	predictor *predictor.Predictor
	metrics   *Metrics
	logger    log.Logger
	folds     int
}

// NewHandlers binds the handlers to a loaded predictor. The result panel
// shows the fold count recorded with the artifacts, or defaultFolds when the
// artifacts carry none.
func NewHandlers(p *predictor.Predictor, m *Metrics, logger log.Logger, defaultFolds int) *Handlers {
	folds := p.Artifacts().CVFolds
	if folds <= 0 {
		folds = defaultFolds
	}
	return &Handlers{predictor: p, metrics: m, logger: logger, folds: folds}
}

// Register mounts every route on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("POST /assess", h.assess)
	mux.HandleFunc("POST /api/v1/predict", h.apiPredict)
	mux.HandleFunc("GET /api/v1/features", h.apiFeatures)
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.Handle("GET /metrics", h.metrics.Handler())
}

// index renders the form with the default measurements.
func (h *Handlers) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, formView(wine.FormValues(wine.DefaultVector()), nil), nil)
}

// assess scores the submitted form. Invalid input re-renders the form with
// field errors and no result.
func (h *Handlers) assess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	v, err := wine.ParseForm(r.PostForm)
	if err != nil {
		h.metrics.Predictions.WithLabelValues(outcomeInvalid).Inc()
		h.render(w, r, http.StatusBadRequest, formView(r.PostForm, fieldErrors(err)), nil)
		return
	}

	a, err := h.predict(r, v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, formView(r.PostForm, nil), &a)
}

type predictRequest struct {
	Features map[string]float64 `json:"features,omitempty"`
	Vector   []float64          `json:"vector,omitempty"`
}

type predictResponse struct {
	Score   float64 `json:"score"`
	Display string  `json:"display"`
	Premium bool    `json:"premium"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// apiPredict accepts either {"features": {column: value}} or
// {"vector": [11 values]}.
func (h *Handlers) apiPredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	var (
		v   wine.Vector
		err error
	)
	switch {
	case req.Features != nil && req.Vector != nil:
		err = errors.NewValueError("predict", `send either "features" or "vector", not both`)
	case req.Features != nil:
		v, err = wine.VectorFromMap(req.Features)
	case req.Vector != nil:
		v, err = wine.VectorFromSlice(req.Vector)
	default:
		err = errors.NewValueError("predict", `one of "features" or "vector" is required`)
	}
	if err == nil {
		err = v.Validate()
	}
	if err != nil {
		h.metrics.Predictions.WithLabelValues(outcomeInvalid).Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Fields: fieldErrors(err)})
		return
	}

	a, err := h.predict(r, v)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "prediction failed"})
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{Score: a.Score, Display: a.Display(), Premium: a.Premium})
}

func (h *Handlers) apiFeatures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"features":          wine.Features(),
		"premium_threshold": wine.PremiumThreshold,
	})
}

func (h *Handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	art := h.predictor.Artifacts()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"model_hash": art.Model.WeightHash(),
		"trained_at": art.ModelCreatedAt,
		"n_features": art.Model.NFeatures,
		"cv_folds":   h.folds,
	})
}

func (h *Handlers) predict(r *http.Request, v wine.Vector) (wine.Assessment, error) {
	start := time.Now()
	a, err := h.predictor.Predict(v)
	h.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		h.metrics.Predictions.WithLabelValues(outcomeError).Inc()
		h.logger.Error("Prediction failed", err, log.RequestIDKey, RequestIDFrom(r.Context()))
		return a, err
	}

	h.metrics.Predictions.WithLabelValues(outcomeOK).Inc()
	h.metrics.PredictedQuality.Observe(a.Score)
	if a.Premium {
		h.metrics.PremiumPredictions.Inc()
	}
	h.logger.Debug("Prediction served",
		log.RequestIDKey, RequestIDFrom(r.Context()),
		log.PhaseKey, log.PhaseInference,
		log.PredictionKey, a.Score,
		log.PremiumKey, a.Premium,
	)
	return a, nil
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, fields []fieldView, result *wine.Assessment) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := pageData{Fields: fields, Result: result, Folds: h.folds}
	if err := indexTemplate.Execute(w, data); err != nil {
		h.logger.Error("Template render failed", err, log.RequestIDKey, RequestIDFrom(r.Context()))
	}
}

// formView echoes the submitted values back into the inputs.
func formView(values map[string][]string, errs map[string]string) []fieldView {
	features := wine.Features()
	out := make([]fieldView, len(features))
	for i, f := range features {
		var value string
		if vs := values[f.Slug()]; len(vs) > 0 {
			value = vs[0]
		}
		out[i] = fieldView{
			Slug:  f.Slug(),
			Label: f.Label,
			Min:   f.FormatValue(f.Min),
			Max:   f.FormatValue(f.Max),
			Step:  f.StepString(),
			Value: value,
			Error: errs[f.Column],
		}
	}
	return out
}

func fieldErrors(err error) map[string]string {
	var verrs errors.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.ByParam()
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
