package sessions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_ListSessions(t *testing.T) {
	var gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"s-1","pid":4242,"kind":"claude"},{"id":"s-2","pid":4243,"kind":"claude"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	list, err := client.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if gotMethod != http.MethodGet || gotPath != "/sessions" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
	if len(list) != 2 || list[0].ID != "s-1" || list[1].PID != 4243 {
		t.Fatalf("unexpected sessions: %+v", list)
	}
}

func TestClient_ListSessionsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.ListSessions(context.Background()); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

func TestClient_StopSession(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stopped":false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	stopped, err := client.StopSession(context.Background(), "run 7")
	if err != nil {
		t.Fatalf("stop session: %v", err)
	}
	if stopped {
		t.Fatalf("expected refusal to pass through")
	}
	if gotPath != "/sessions/run%207/stop" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
}

func TestClient_ForceStopSendsPID(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if err := client.ForceStopSession(context.Background(), "s-9", 991); err != nil {
		t.Fatalf("force stop: %v", err)
	}
	if gotPath != "/sessions/s-9/kill" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if pid, _ := gotBody["pid"].(float64); pid != 991 {
		t.Fatalf("expected pid in body, got %v", gotBody)
	}
}

func TestNop_ReportsNoSessions(t *testing.T) {
	var supervisor Supervisor = Nop{}
	list, err := supervisor.ListSessions(context.Background())
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v / %v", list, err)
	}
	stopped, err := supervisor.StopSession(context.Background(), "any")
	if err != nil || !stopped {
		t.Fatalf("nop stop must succeed, got %v / %v", stopped, err)
	}
	if errKill := supervisor.ForceStopSession(context.Background(), "any", 1); errKill != nil {
		t.Fatalf("nop force stop: %v", errKill)
	}
}
