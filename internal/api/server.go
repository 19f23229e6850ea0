// Package api serves the read-only annotation report surface: JSON
// endpoints for batches, agreement and annotator scores, plus HTML
// chart pages. Nothing here mutates annotation state.
package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/dhvani-data/annotation.report/internal/config"
	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/httputil"
	"github.com/dhvani-data/annotation.report/internal/iaa"
	"github.com/dhvani-data/annotation.report/internal/scorer"
	"github.com/dhvani-data/annotation.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db  *db.DB
	cfg *config.EngineConfig
}

func NewServer(database *db.DB, cfg *config.EngineConfig) *Server {
	return &Server{
		db:  database,
		cfg: cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.showHealth)
	mux.HandleFunc("/api/batches", s.listBatches)
	mux.HandleFunc("/api/labels", s.listLabels)
	mux.HandleFunc("/api/agreement", s.showAgreement)
	mux.HandleFunc("/api/disagreements", s.listDisagreements)
	mux.HandleFunc("/api/annotators", s.listAnnotators)
	mux.HandleFunc("/api/annotators/scores", s.showAnnotatorScores)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/charts/labels", s.labelChart)
	mux.HandleFunc("/charts/kappa", s.kappaChart)
	mux.HandleFunc("/charts/annotators", s.annotatorChart)
	return mux
}

func (s *Server) showHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) listBatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 0 // all batches
	if l := r.URL.Query().Get("limit"); l != "" {
		parsedLimit, err := strconv.Atoi(l)
		if err != nil || parsedLimit < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsedLimit
	}

	batches, err := s.db.ListBatches(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve batches: %v", err))
		return
	}
	if batches == nil {
		batches = []db.Batch{}
	}

	httputil.WriteJSONOK(w, batches)
}

func (s *Server) listLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	name := r.URL.Query().Get("batch")
	if name == "" {
		httputil.BadRequest(w, "Missing 'batch' parameter")
		return
	}

	batch, err := s.db.GetBatchByName(name)
	if err != nil {
		httputil.NotFound(w, fmt.Sprintf("Failed to find batch %q: %v", name, err))
		return
	}

	labels, err := s.db.ListAggregatedLabelsForBatch(batch.BatchID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve labels: %v", err))
		return
	}
	if labels == nil {
		labels = []db.AggregatedLabel{}
	}

	httputil.WriteJSONOK(w, labels)
}

// agreementForBatch loads a batch's annotations and computes the
// agreement report. The error return carries the HTTP status and
// message to send when the report could not be built.
func (s *Server) agreementForBatch(name string) (*iaa.Report, int, string) {
	batch, err := s.db.GetBatchByName(name)
	if err != nil {
		return nil, http.StatusNotFound, fmt.Sprintf("Failed to find batch %q: %v", name, err)
	}

	annotations, err := s.db.ListAnnotationsForBatch(batch.BatchID)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve annotations: %v", err)
	}

	report, err := iaa.Compute(annotations, iaa.Config{
		KappaThreshold: s.cfg.GetKappaThreshold(),
		Subtypes:       s.cfg.GetToxicSubtypes(),
	})
	if err != nil {
		var undef *iaa.UndefinedAgreementError
		if errors.As(err, &undef) {
			return nil, http.StatusNotFound, undef.Error()
		}
		return nil, http.StatusInternalServerError, fmt.Sprintf("Failed to compute agreement: %v", err)
	}

	return report, http.StatusOK, ""
}

type agreementResponse struct {
	Batch string `json:"batch"`
	*iaa.Report
}

func (s *Server) showAgreement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	name := r.URL.Query().Get("batch")
	if name == "" {
		httputil.BadRequest(w, "Missing 'batch' parameter")
		return
	}

	report, status, msg := s.agreementForBatch(name)
	if report == nil {
		httputil.WriteJSONError(w, status, msg)
		return
	}

	httputil.WriteJSONOK(w, agreementResponse{Batch: name, Report: report})
}

func (s *Server) listDisagreements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	name := r.URL.Query().Get("batch")
	if name == "" {
		httputil.BadRequest(w, "Missing 'batch' parameter")
		return
	}

	report, status, msg := s.agreementForBatch(name)
	if report == nil {
		httputil.WriteJSONError(w, status, msg)
		return
	}

	disagreements := report.Disagreements
	if disagreements == nil {
		disagreements = []iaa.Disagreement{}
	}

	httputil.WriteJSONOK(w, disagreements)
}

func (s *Server) listAnnotators(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	annotators, err := s.db.ListAnnotators()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve annotators: %v", err))
		return
	}
	if annotators == nil {
		annotators = []string{}
	}

	httputil.WriteJSONOK(w, annotators)
}

// scoreDashboard evaluates annotators against the gold set, over one
// batch when a name is given, otherwise over every annotation in the
// store. The error return carries the HTTP status and message.
func (s *Server) scoreDashboard(batchName string) (*scorer.Dashboard, int, string) {
	gold, err := s.db.ListGoldItems()
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve gold items: %v", err)
	}
	if len(gold) == 0 {
		return nil, http.StatusNotFound, "no gold items loaded"
	}

	var annotations []db.Annotation
	var tasks []db.Task
	if batchName != "" {
		batch, err := s.db.GetBatchByName(batchName)
		if err != nil {
			return nil, http.StatusNotFound, fmt.Sprintf("Failed to find batch %q: %v", batchName, err)
		}
		if annotations, err = s.db.ListAnnotationsForBatch(batch.BatchID); err != nil {
			return nil, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve annotations: %v", err)
		}
		if tasks, err = s.db.ListTasksForBatch(batch.BatchID); err != nil {
			return nil, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve tasks: %v", err)
		}
	} else {
		if annotations, err = s.db.ListAllAnnotations(); err != nil {
			return nil, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve annotations: %v", err)
		}
		if tasks, err = s.db.ListAllTasks(); err != nil {
			return nil, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve tasks: %v", err)
		}
	}

	dashboard := scorer.Score(annotations, tasks, gold, scorer.Config{
		AccuracyFloor:  s.cfg.GetAccuracyFloor(),
		MinGoldOverlap: s.cfg.GetMinGoldOverlap(),
		Subtypes:       s.cfg.GetToxicSubtypes(),
	})
	return dashboard, http.StatusOK, ""
}

func (s *Server) showAnnotatorScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	dashboard, status, msg := s.scoreDashboard(r.URL.Query().Get("batch"))
	if dashboard == nil {
		httputil.WriteJSONError(w, status, msg)
		return
	}

	httputil.WriteJSONOK(w, dashboard)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, s.cfg)
}
