package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rmax-ai/wattwise/pkg/chat"
	"github.com/rmax-ai/wattwise/pkg/forecast"
	"github.com/rmax-ai/wattwise/pkg/ledger"
	"github.com/rmax-ai/wattwise/pkg/provider"
)

type mockProvider struct {
	answer string
	err    error
	calls  int
}

func (m *mockProvider) Name() string { return "gemini" }

func (m *mockProvider) Generate(ctx context.Context, history []provider.Message, question string) (string, error) {
	m.calls++
	return m.answer, m.err
}

type mockPublisher struct {
	predictions []forecast.Prediction
}

func (m *mockPublisher) Prediction(p forecast.Prediction) error {
	m.predictions = append(m.predictions, p)
	return nil
}

func createTestServer(t *testing.T, p provider.Provider) *Server {
	t.Helper()
	predictor := forecast.NewPredictor()
	predictor.Now = func() time.Time { return time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC) }

	return NewServer(ledger.New(ledger.NewMemoryStore()), predictor, nil, chat.NewGateway(p), "")
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error body %q: %v", w.Body.String(), err)
	}
	return resp.Error
}

func TestAppliances_Lifecycle(t *testing.T) {
	s := createTestServer(t, nil)

	w := do(t, s, "GET", "/api/appliances", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "{}" {
		t.Fatalf("Expected empty object, got %d %q", w.Code, w.Body.String())
	}

	do(t, s, "POST", "/api/appliances", `{"appliance":"TV","hours":3}`)
	w = do(t, s, "POST", "/api/appliances", `{"appliance":"Fan","hours":"10"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"success":true,"appliances":{"TV":3,"Fan":10}}` {
		t.Errorf("Unexpected body %s", got)
	}

	w = do(t, s, "GET", "/api/appliances", "")
	if got := strings.TrimSpace(w.Body.String()); got != `{"TV":3,"Fan":10}` {
		t.Errorf("Expected insertion order, got %s", got)
	}

	w = do(t, s, "DELETE", "/api/appliances/TV", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"success":true,"appliances":{"Fan":10}}` {
		t.Errorf("Unexpected body %s", got)
	}
}

func TestAppliances_DeleteEncodedName(t *testing.T) {
	s := createTestServer(t, nil)
	do(t, s, "POST", "/api/appliances", `{"appliance":"Air Conditioner","hours":5}`)

	w := do(t, s, "DELETE", "/api/appliances/Air%20Conditioner", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAppliances_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"missing appliance", `{"hours":3}`, 400, "Missing appliance or hours"},
		{"missing hours", `{"appliance":"Fan"}`, 400, "Missing appliance or hours"},
		{"out of range", `{"appliance":"Fan","hours":30}`, 400, "Hours must be between 0 and 24"},
		{"negative", `{"appliance":"Fan","hours":-2}`, 400, "Hours must be between 0 and 24"},
		{"not a number", `{"appliance":"Fan","hours":"lots"}`, 400, "Invalid hours value"},
		{"empty string", `{"appliance":"Fan","hours":""}`, 400, "Invalid hours value"},
		{"boolean hours", `{"appliance":"Fan","hours":true}`, 400, "Invalid hours value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestServer(t, nil)
			w := do(t, s, "POST", "/api/appliances", tt.body)
			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, w.Code)
			}
			if got := errorMessage(t, w); got != tt.message {
				t.Errorf("Expected %q, got %q", tt.message, got)
			}

			list := do(t, s, "GET", "/api/appliances", "")
			if strings.TrimSpace(list.Body.String()) != "{}" {
				t.Errorf("Failed request mutated ledger: %s", list.Body.String())
			}
		})
	}
}

func TestAppliances_InvalidJSON(t *testing.T) {
	for _, body := range []string{`{not json`, `{"appliance":42,"hours":3}`} {
		s := createTestServer(t, nil)
		w := do(t, s, "POST", "/api/appliances", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
		if got := errorMessage(t, w); got != "invalid_json_body" {
			t.Errorf("%s: expected invalid_json_body, got %q", body, got)
		}
	}
}

func TestAppliances_DeleteMissing(t *testing.T) {
	s := createTestServer(t, nil)
	w := do(t, s, "DELETE", "/api/appliances/Heater", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
	if got := errorMessage(t, w); got != "Appliance not found" {
		t.Errorf("Expected Appliance not found, got %q", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := createTestServer(t, nil)
	cases := [][2]string{
		{"PUT", "/api/appliances"},
		{"GET", "/api/appliances/Fan"},
		{"GET", "/api/predict"},
		{"POST", "/api/report"},
		{"DELETE", "/api/analysis"},
		{"POST", "/api/mlreport"},
		{"GET", "/api/chatbot"},
		{"GET", "/api/chatbot/sessions"},
		{"POST", "/api/export"},
		{"POST", "/api/events"},
		{"POST", "/health"},
	}
	for _, c := range cases {
		w := do(t, s, c[0], c[1], "")
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected 405, got %d", c[0], c[1], w.Code)
		}
		if !strings.Contains(w.Body.String(), "method_not_allowed") {
			t.Errorf("%s %s: unexpected body %q", c[0], c[1], w.Body.String())
		}
	}
}

func TestPredict(t *testing.T) {
	s := createTestServer(t, nil)
	pub := &mockPublisher{}
	s.SetPublisher(pub)

	w := do(t, s, "POST", "/api/predict", `{"bills":[300,320,"340"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp PredictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if !resp.Success || resp.PredictedBill != 360 || resp.RoundedBill != 360 {
		t.Errorf("Unexpected prediction %+v", resp)
	}
	if resp.PredictedUnits != 76.43 {
		t.Errorf("Expected 76.43 units, got %v", resp.PredictedUnits)
	}
	want := []string{"December", "January", "February", "March"}
	for i, m := range want {
		if resp.MonthNames[i] != m {
			t.Errorf("month %d: expected %s, got %s", i, m, resp.MonthNames[i])
		}
	}
	if len(pub.predictions) != 1 {
		t.Errorf("Expected prediction to be published once, got %d", len(pub.predictions))
	}
}

func TestPredict_Validation(t *testing.T) {
	s := createTestServer(t, nil)
	tests := map[string]string{
		`{"bills":[1,2]}`:         "Please provide exactly 3 months of bill data",
		`{}`:                      "Please provide exactly 3 months of bill data",
		`{"bills":[1,2,"abc"]}`:   "could not convert string to float: 'abc'",
		`{"bills":[1,2,-3]}`:      "Bill values must not be negative",
		`{"bills":[1,2,3,4]}`:     "Please provide exactly 3 months of bill data",
		`{"bills":[1,2,{"a":1}]}`: `could not convert {"a":1} to float`,
	}
	for body, msg := range tests {
		w := do(t, s, "POST", "/api/predict", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
			continue
		}
		if got := errorMessage(t, w); got != msg {
			t.Errorf("%s: expected %q, got %q", body, msg, got)
		}
	}
}

func TestPredictChart(t *testing.T) {
	s := createTestServer(t, nil)
	w := do(t, s, "POST", "/api/predict/chart", `{"bills":[300,320,340]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("Expected PNG signature")
	}
}

func TestReports_Empty(t *testing.T) {
	s := createTestServer(t, nil)
	for _, path := range []string{"/api/report", "/api/analysis", "/api/mlreport"} {
		w := do(t, s, "GET", path, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
			continue
		}
		if got := errorMessage(t, w); got != "No appliances data available" {
			t.Errorf("%s: unexpected message %q", path, got)
		}
	}
}

func TestReports(t *testing.T) {
	s := createTestServer(t, nil)
	do(t, s, "POST", "/api/appliances", `{"appliance":"Fan","hours":10}`)
	do(t, s, "POST", "/api/appliances", `{"appliance":"TV","hours":5}`)

	w := do(t, s, "GET", "/api/report", "")
	var report struct {
		TotalHours int `json:"total_hours"`
		Appliances []struct {
			Name       string  `json:"name"`
			Percentage float64 `json:"percentage"`
			UsageLevel string  `json:"usage_level"`
		} `json:"appliances"`
	}
	json.Unmarshal(w.Body.Bytes(), &report)
	if report.TotalHours != 15 || report.Appliances[0].Percentage != 66.7 || report.Appliances[0].UsageLevel != "high" {
		t.Errorf("Unexpected report %s", w.Body.String())
	}

	w = do(t, s, "GET", "/api/analysis", "")
	var analysis struct {
		TotalCost  float64 `json:"total_cost"`
		Regression *struct {
			Slope float64 `json:"slope"`
		} `json:"regression"`
	}
	json.Unmarshal(w.Body.Bytes(), &analysis)
	if analysis.TotalCost != 8.5 || analysis.Regression == nil {
		t.Errorf("Unexpected analysis %s", w.Body.String())
	}

	w = do(t, s, "GET", "/api/mlreport", "")
	var ml struct {
		TotalSavings float64 `json:"total_savings"`
	}
	json.Unmarshal(w.Body.Bytes(), &ml)
	if ml.TotalSavings != 10 {
		t.Errorf("Expected savings 10, got %s", w.Body.String())
	}
}

func TestAnalysis_SingleEntryOmitsRegression(t *testing.T) {
	s := createTestServer(t, nil)
	do(t, s, "POST", "/api/appliances", `{"appliance":"Fan","hours":10}`)

	w := do(t, s, "GET", "/api/analysis", "")
	if strings.Contains(w.Body.String(), "regression") {
		t.Errorf("Expected no regression key, got %s", w.Body.String())
	}
}

func TestChatbot(t *testing.T) {
	p := &mockProvider{answer: "Use a fan."}
	s := createTestServer(t, p)

	w := do(t, s, "POST", "/api/chatbot", `{"question":"How to save energy?"}`)
	var resp ChatResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Source != chat.SourceCanned || resp.ConversationID != "default" {
		t.Errorf("Unexpected canned response %d %s", w.Code, w.Body.String())
	}
	if p.calls != 0 {
		t.Errorf("Canned answer must not call provider")
	}

	w = do(t, s, "POST", "/api/chatbot", `{"question":"Is my AC efficient?","conversation_id":"abc"}`)
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Success || resp.Response != "Use a fan." || resp.ConversationID != "abc" || resp.Source != "gemini" {
		t.Errorf("Unexpected provider response %s", w.Body.String())
	}
}

func TestChatbot_Errors(t *testing.T) {
	s := createTestServer(t, &mockProvider{err: errors.New("quota exhausted")})

	w := do(t, s, "POST", "/api/chatbot", `{"question":""}`)
	if w.Code != http.StatusBadRequest || errorMessage(t, w) != "No question provided" {
		t.Errorf("Expected 400 No question provided, got %d %s", w.Code, w.Body.String())
	}

	w = do(t, s, "POST", "/api/chatbot", `{"question":"hello"}`)
	if w.Code != http.StatusInternalServerError || errorMessage(t, w) != "quota exhausted" {
		t.Errorf("Expected 500 quota exhausted, got %d %s", w.Code, w.Body.String())
	}
}

func TestChatbot_NoProvider(t *testing.T) {
	s := createTestServer(t, nil)
	w := do(t, s, "POST", "/api/chatbot", `{"question":"hello"}`)
	if w.Code != http.StatusInternalServerError || errorMessage(t, w) != "chat provider not configured" {
		t.Errorf("Unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestChatSessions(t *testing.T) {
	s := createTestServer(t, &mockProvider{answer: "ok"})

	w := do(t, s, "POST", "/api/chatbot/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	var sess SessionResponse
	json.Unmarshal(w.Body.Bytes(), &sess)
	if len(sess.ConversationID) != 36 {
		t.Fatalf("Expected UUID, got %q", sess.ConversationID)
	}

	w = do(t, s, "DELETE", "/api/chatbot/sessions/"+sess.ConversationID, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	w = do(t, s, "DELETE", "/api/chatbot/sessions/"+sess.ConversationID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestExport(t *testing.T) {
	s := createTestServer(t, nil)
	do(t, s, "POST", "/api/appliances", `{"appliance":"Fan","hours":10}`)

	w := do(t, s, "GET", "/api/export?type=mlreport", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if records[0][0] != "name" || records[1][0] != "Fan" {
		t.Errorf("Unexpected CSV %v", records)
	}

	w = do(t, s, "GET", "/api/export?type=bogus", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown type, got %d", w.Code)
	}
}

func TestEvents(t *testing.T) {
	s := createTestServer(t, nil)
	do(t, s, "POST", "/api/appliances", `{"appliance":"Fan","hours":10}`)
	do(t, s, "DELETE", "/api/appliances/Fan", "")

	w := do(t, s, "GET", "/api/events?limit=1", "")
	var events []ledger.Event
	if err := json.Unmarshal(w.Body.Bytes(), &events); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(events) != 1 || events[0].EventType != ledger.EventTypeApplianceRemoved {
		t.Errorf("Unexpected events %s", w.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := createTestServer(t, nil)

	w := do(t, s, "GET", "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("Unexpected health response %d %s", w.Code, w.Body.String())
	}

	do(t, s, "POST", "/api/appliances", `{"appliance":"Fan","hours":10}`)
	w = do(t, s, "GET", "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "wattwise_appliances") {
		t.Errorf("Expected wattwise metrics in exposition")
	}
}

func TestTraceID(t *testing.T) {
	s := createTestServer(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("X-Trace-ID"); got != "trace-123" {
		t.Errorf("Expected propagated trace id, got %q", got)
	}

	w = do(t, s, "GET", "/health", "")
	if len(w.Header().Get("X-Trace-ID")) != 32 {
		t.Errorf("Expected generated trace id, got %q", w.Header().Get("X-Trace-ID"))
	}
}

func TestRecovery(t *testing.T) {
	handler := withRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestSecureHeaders(t *testing.T) {
	handler := withSecureHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	expectedHeaders := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}
	for key, expected := range expectedHeaders {
		if got := w.Header().Get(key); got != expected {
			t.Errorf("Header %s: expected %q, got %q", key, expected, got)
		}
	}
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/api/appliances/Fan":       "/api/appliances/{name}",
		"/api/chatbot/sessions/abc": "/api/chatbot/sessions/{id}",
		"/api/report":               "/api/report",
		"/wp-admin":                 "other",
	}
	for path, want := range cases {
		if got := routeLabel(path); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}
