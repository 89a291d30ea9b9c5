package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmax-ai/wattwise/pkg/analysis"
	"github.com/rmax-ai/wattwise/pkg/charts"
	"github.com/rmax-ai/wattwise/pkg/chat"
	"github.com/rmax-ai/wattwise/pkg/errs"
	"github.com/rmax-ai/wattwise/pkg/forecast"
	"github.com/rmax-ai/wattwise/pkg/ledger"
	"github.com/rmax-ai/wattwise/pkg/metrics"
	"github.com/rmax-ai/wattwise/pkg/reports"
)

// Context keys
type contextKey string

const traceIDKey contextKey = "trace_id"

const maxBodyBytes = 1 << 20

// Interfaces for dependencies to enable mocking

type LedgerInterface interface {
	List(ctx context.Context) ([]ledger.Entry, error)
	Add(ctx context.Context, name string, hours int) ([]ledger.Entry, error)
	Remove(ctx context.Context, name string) ([]ledger.Entry, error)
	RecentEvents(ctx context.Context, limit int) ([]ledger.Event, error)
	OnChange(fn ledger.ChangeFunc)
}

type ChatInterface interface {
	Answer(ctx context.Context, conversationID, question string) (chat.Reply, error)
	Sessions() *chat.Sessions
}

// PredictionPublisher receives every successful prediction.
type PredictionPublisher interface {
	Prediction(p forecast.Prediction) error
}

// Server encapsulates the HTTP API server
type Server struct {
	ledger    LedgerInterface
	predictor *forecast.Predictor
	analyzer  *analysis.Analyzer
	chat      ChatInterface
	publisher PredictionPublisher

	handler http.Handler
	server  *http.Server
}

// NewServer creates a new API server instance
func NewServer(l LedgerInterface, predictor *forecast.Predictor, analyzer *analysis.Analyzer, gateway ChatInterface, addr string) *Server {
	if predictor == nil {
		predictor = forecast.NewPredictor()
	}
	if analyzer == nil {
		analyzer = analysis.New(nil)
	}

	s := &Server{
		ledger:    l,
		predictor: predictor,
		analyzer:  analyzer,
		chat:      gateway,
	}
	l.OnChange(observeLedger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/appliances", s.handleAppliances)
	mux.HandleFunc("/api/appliances/", s.handleApplianceItem)
	mux.HandleFunc("/api/predict", s.handlePredict)
	mux.HandleFunc("/api/predict/chart", s.handlePredictChart)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/api/analysis", s.handleAnalysis)
	mux.HandleFunc("/api/mlreport", s.handleMLReport)
	mux.HandleFunc("/api/chatbot", s.handleChatbot)
	mux.HandleFunc("/api/chatbot/sessions", s.handleSessions)
	mux.HandleFunc("/api/chatbot/sessions/", s.handleSessionItem)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/api/events", s.handleEvents)

	// Middleware: Logging, Metrics, Panic Recovery, Security Headers
	s.handler = withLogging(withMetrics(withRecovery(withSecureHeaders(mux))))

	if addr == "" {
		addr = "127.0.0.1:5000"
	}

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Chat calls can run up to the provider timeout.
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return s
}

// SetPublisher sets where predictions are mirrored to.
func (s *Server) SetPublisher(p PredictionPublisher) {
	s.publisher = p
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start runs the HTTP server (blocking)
func (s *Server) Start() error {
	slog.Info("server_starting", "component", "api", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	slog.Info("server_stopping", "component", "api")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleAppliances(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := s.ledger.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, ledger.Listing(entries))

	case http.MethodPost:
		var req ApplianceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Appliance == "" {
			writeError(w, r, errs.Validation("appliance", "Missing appliance or hours"))
			return
		}
		hours, err := ledger.ParseHours(req.Hours)
		if err != nil {
			writeError(w, r, err)
			return
		}
		entries, err := s.ledger.Add(r.Context(), req.Appliance, hours)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, ApplianceResponse{Success: true, Appliances: entries})

	default:
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleApplianceItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/appliances/")
	if name == "" {
		writeError(w, r, errs.NotFound("Appliance", name))
		return
	}

	entries, err := s.ledger.Remove(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ApplianceResponse{Success: true, Appliances: entries})
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) (forecast.Prediction, bool) {
	var req PredictRequest
	if !decodeBody(w, r, &req) {
		return forecast.Prediction{}, false
	}
	bills, err := forecast.ParseBills(req.Bills)
	if err != nil {
		writeError(w, r, err)
		return forecast.Prediction{}, false
	}
	p, err := s.predictor.Predict(bills)
	if err != nil {
		writeError(w, r, err)
		return forecast.Prediction{}, false
	}
	return p, true
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.predict(w, r)
	if !ok {
		return
	}

	metrics.PredictedBill.Set(p.PredictedBill)
	if s.publisher != nil {
		if err := s.publisher.Prediction(p); err != nil {
			slog.Warn("prediction_publish_failed", "component", "api", "trace_id", getTraceID(r.Context()), "error", err)
		}
	}
	writeJSON(w, r, http.StatusOK, PredictResponse{Success: true, Prediction: p})
}

func (s *Server) handlePredictChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.predict(w, r)
	if !ok {
		return
	}

	img, err := charts.BillTrend(p, charts.DefaultOptions())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.serveAnalysis(w, r, func(entries []ledger.Entry) (any, error) {
		return s.analyzer.Hours(entries)
	})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	s.serveAnalysis(w, r, func(entries []ledger.Entry) (any, error) {
		return s.analyzer.Cost(entries)
	})
}

func (s *Server) handleMLReport(w http.ResponseWriter, r *http.Request) {
	s.serveAnalysis(w, r, func(entries []ledger.Entry) (any, error) {
		return s.analyzer.Savings(entries)
	})
}

func (s *Server) serveAnalysis(w http.ResponseWriter, r *http.Request, compute func([]ledger.Entry) (any, error)) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	entries, err := s.ledger.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := compute(entries)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleChatbot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	var req ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reply, err := s.chat.Answer(r.Context(), req.ConversationID, req.Question)
	if err != nil {
		var verr *errs.ValidationError
		if !errors.As(err, &verr) {
			metrics.ChatRequestsTotal.WithLabelValues("provider", "error").Inc()
		}
		writeError(w, r, err)
		return
	}
	metrics.ChatRequestsTotal.WithLabelValues(reply.Source, "ok").Inc()

	writeJSON(w, r, http.StatusOK, ChatResponse{
		Success:        true,
		Response:       reply.Response,
		ConversationID: reply.ConversationID,
		Source:         reply.Source,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	id := s.chat.Sessions().Create()
	writeJSON(w, r, http.StatusCreated, SessionResponse{ConversationID: id})
}

func (s *Server) handleSessionItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/chatbot/sessions/")
	if !s.chat.Sessions().Delete(id) {
		writeError(w, r, errs.NotFound("Conversation", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	reportType := reports.ReportType(r.URL.Query().Get("type"))
	if reportType == "" {
		reportType = reports.ReportTypeUsage
	}
	gen, err := reports.NewReportGenerator(reportType, s.ledger, s.analyzer)
	if err != nil {
		writeError(w, r, errs.Validation("type", err.Error()))
		return
	}

	params := reports.ReportParams{}
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			params.Limit = val
		}
	}

	reader, err := gen.Generate(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=wattwise-%s-%s.csv", reportType, time.Now().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		slog.Error("failed_to_stream_report", "component", "api", "trace_id", getTraceID(r.Context()), "error", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			limit = val
		}
	}

	events, err := s.ledger.RecentEvents(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func observeLedger(_ context.Context, entries []ledger.Entry) {
	total := 0
	for _, e := range entries {
		total += e.Hours
	}
	metrics.ObserveLedger(len(entries), total)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		http.Error(w, `{"error":"invalid_json_body"}`, http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed_to_encode_response", "component", "api", "trace_id", getTraceID(r.Context()), "error", err)
	}
}

// writeError maps typed errors to status codes. Unknown errors are logged
// and reported as internal_server_error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr  *errs.ValidationError
		nf    *errs.NotFoundError
		empty *errs.EmptyStateError
		serr  *errs.ServiceError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: verr.Error()})
	case errors.As(err, &nf):
		writeJSON(w, r, http.StatusNotFound, ErrorResponse{Error: nf.Error()})
	case errors.As(err, &empty):
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: empty.Error()})
	case errors.As(err, &serr):
		slog.Error("service_error", "component", "api", "trace_id", getTraceID(r.Context()), "service", serr.Service, "error", err)
		writeJSON(w, r, http.StatusInternalServerError, ErrorResponse{Error: serr.Error()})
	default:
		slog.Error("request_failed", "component", "api", "trace_id", getTraceID(r.Context()), "path", r.URL.Path, "error", err)
		writeJSON(w, r, http.StatusInternalServerError, ErrorResponse{Error: "internal_server_error"})
	}
}

// Middleware: Panic Recovery
func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic_recovered", "component", "api", "trace_id", getTraceID(r.Context()), "error", fmt.Sprint(err), "path", r.URL.Path)
				http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Middleware: Request Logging
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = generateTraceID()
		}
		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		r = r.WithContext(ctx)

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(ww, r)

		slog.Info("http_request",
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Middleware: Prometheus request metrics
func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		route := routeLabel(r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.status)).Inc()
		metrics.HTTPRequestSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeLabel collapses path parameters so metric cardinality stays bounded.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/appliances/"):
		return "/api/appliances/{name}"
	case strings.HasPrefix(path, "/api/chatbot/sessions/"):
		return "/api/chatbot/sessions/{id}"
	}
	switch path {
	case "/health", "/metrics", "/api/appliances", "/api/predict", "/api/predict/chart",
		"/api/report", "/api/analysis", "/api/mlreport", "/api/chatbot",
		"/api/chatbot/sessions", "/api/export", "/api/events":
		return path
	}
	return "other"
}

func generateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func getTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// statusWriter captures HTTP status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware: Secure Headers
func withSecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
