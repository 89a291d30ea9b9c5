package client

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_Appliances(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/appliances" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"TV":5,"Fan":10}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	got, err := c.Appliances(t.Context())
	if err != nil {
		t.Fatalf("Appliances() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "TV" || got[1].Name != "Fan" || got[1].Hours != 10 {
		t.Errorf("Appliances() = %+v, want TV then Fan in server order", got)
	}
}

func TestClient_AddAppliance(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     bool
		wantMessage string
	}{
		{
			name:   "Added",
			status: http.StatusOK,
			body:   `{"success":true,"appliances":{"Fan":10}}`,
		},
		{
			name:        "Rejected",
			status:      http.StatusBadRequest,
			body:        `{"error":"Hours must be between 0 and 24"}`,
			wantErr:     true,
			wantMessage: "Hours must be between 0 and 24",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("Method = %s, want POST", r.Method)
				}
				var req map[string]any
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decode request: %v", err)
				}
				if req["appliance"] != "Fan" || req["hours"] != float64(10) {
					t.Errorf("request body = %v", req)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			got, err := NewClient(ts.URL).AddAppliance(t.Context(), "Fan", 10)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AddAppliance() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("error type = %T, want *APIError", err)
				}
				if apiErr.StatusCode != tt.status || apiErr.Message != tt.wantMessage {
					t.Errorf("APIError = %+v", apiErr)
				}
				return
			}
			if len(got) != 1 || got[0].Name != "Fan" {
				t.Errorf("AddAppliance() = %+v", got)
			}
		})
	}
}

func TestClient_RemoveAppliance_EscapesName(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("Method = %s, want DELETE", r.Method)
		}
		if r.URL.EscapedPath() != "/api/appliances/Washing%20Machine" {
			t.Errorf("path = %s", r.URL.EscapedPath())
		}
		w.Write([]byte(`{"success":true,"appliances":{}}`))
	}))
	defer ts.Close()

	got, err := NewClient(ts.URL).RemoveAppliance(t.Context(), "Washing Machine")
	if err != nil {
		t.Fatalf("RemoveAppliance() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("RemoveAppliance() = %+v, want empty", got)
	}
}

func TestClient_Predict(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"bills":[1000,1200,1400]}` {
			t.Errorf("body = %s", body)
		}
		w.Write([]byte(`{"success":true,"predicted_bill":1600,"predicted_units":290.5,"rounded_bill":1600}`))
	}))
	defer ts.Close()

	p, err := NewClient(ts.URL).Predict(t.Context(), []float64{1000, 1200, 1400})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if p.PredictedBill != 1600 || p.PredictedUnits != 290.5 {
		t.Errorf("Predict() = %+v", p)
	}
}

func TestClient_Ask(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["question"] != "how do I save?" || req["conversation_id"] != "c-1" {
			t.Errorf("request = %v", req)
		}
		w.Write([]byte(`{"success":true,"response":"Turn it off.","conversation_id":"c-1","source":"gemini"}`))
	}))
	defer ts.Close()

	reply, err := NewClient(ts.URL).Ask(t.Context(), "c-1", "how do I save?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if reply.Response != "Turn it off." || reply.Source != "gemini" {
		t.Errorf("Ask() = %+v", reply)
	}
}

func TestClient_Conversations(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/chatbot/sessions":
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"conversation_id":"abc"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/chatbot/sessions/abc":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Conversation not found"}`))
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	id, err := c.NewConversation(t.Context())
	if err != nil || id != "abc" {
		t.Fatalf("NewConversation() = %q, %v", id, err)
	}
	if err := c.EndConversation(t.Context(), id); err != nil {
		t.Fatalf("EndConversation() error = %v", err)
	}
	err = c.EndConversation(t.Context(), "nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("EndConversation(nope) error = %v, want 404", err)
	}
}

func TestClient_Export(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "mlreport" {
			t.Errorf("type = %q", r.URL.Query().Get("type"))
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("appliance,hours\n"))
	}))
	defer ts.Close()

	data, err := NewClient(ts.URL).Export(t.Context(), "mlreport")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if string(data) != "appliance,hours\n" {
		t.Errorf("Export() = %q", data)
	}
}

func TestClient_RetriesIdempotentRequests(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithRetries(3, &ExponentialBackoff{Base: time.Millisecond, Max: 5 * time.Millisecond, Factor: 2}))
	status, err := c.Ping(t.Context())
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if status.Status != "ok" || calls.Load() != 3 {
		t.Errorf("Ping() = %+v after %d calls", status, calls.Load())
	}
}

func TestClient_DoesNotRetryWrites(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithRetries(3, &ExponentialBackoff{Base: time.Millisecond, Max: time.Millisecond, Factor: 2}))
	if _, err := c.Ask(t.Context(), "", "hi"); err == nil {
		t.Fatal("Ask() error = nil, want 500")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"No appliances data available"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithRetries(3, DefaultBackoff()))
	_, err := c.Report(t.Context())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "No appliances data available" {
		t.Fatalf("Report() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestNewClient_DefaultEndpoint(t *testing.T) {
	if got := NewClient("").Endpoint(); got != "http://127.0.0.1:5000" {
		t.Errorf("Endpoint() = %q", got)
	}
	if got := NewClient("http://x:1/").Endpoint(); got != "http://x:1" {
		t.Errorf("Endpoint() = %q, want trailing slash trimmed", got)
	}
}

func TestAPIError_Error(t *testing.T) {
	if got := (&APIError{StatusCode: 502}).Error(); got != "unexpected status: 502" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&APIError{StatusCode: 404, Message: "Appliance not found"}).Error(); got != "Appliance not found (status 404)" {
		t.Errorf("Error() = %q", got)
	}
}
