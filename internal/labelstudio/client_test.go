package labelstudio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/httputil"
)

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	c := NewClient("http://labelstudio.example/", "tok")
	if c.BaseURL != "http://labelstudio.example" {
		t.Errorf("expected trimmed base URL, got %q", c.BaseURL)
	}
}

func TestFetchExport(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, sampleExport)

	c := &Client{BaseURL: "http://labelstudio.example", Token: "secret-token", HTTP: mock}
	body, err := c.FetchExport(context.Background(), 7)
	if err != nil {
		t.Fatalf("FetchExport failed: %v", err)
	}
	if string(body) != sampleExport {
		t.Error("expected export body to be returned verbatim")
	}

	req := mock.GetRequest(0)
	if req == nil {
		t.Fatal("expected a recorded request")
	}
	if req.Method != http.MethodGet {
		t.Errorf("expected GET, got %s", req.Method)
	}
	wantURL := "http://labelstudio.example/api/projects/7/export?exportType=JSON"
	if req.URL.String() != wantURL {
		t.Errorf("expected URL %s, got %s", wantURL, req.URL.String())
	}
	if got := req.Header.Get("Authorization"); got != "Token secret-token" {
		t.Errorf("expected token auth header, got %q", got)
	}
}

func TestFetchExportServerError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusInternalServerError, "something broke")

	c := &Client{BaseURL: "http://labelstudio.example", HTTP: mock}
	_, err := c.FetchExport(context.Background(), 7)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected status code in error, got %v", err)
	}
}

func TestFetchExportNoTokenNoAuthHeader(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "[]")

	c := &Client{BaseURL: "http://labelstudio.example", HTTP: mock}
	if _, err := c.FetchExport(context.Background(), 1); err != nil {
		t.Fatalf("FetchExport failed: %v", err)
	}
	if got := mock.GetRequest(0).Header.Get("Authorization"); got != "" {
		t.Errorf("expected no auth header without a token, got %q", got)
	}
}

func TestPushTasks(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusCreated, `{"task_count": 2}`)

	items := []db.Item{
		{ItemID: "item-001", Text: "pehla", Source: "twitter", Language: "hi-en", CodeMixed: true},
		{ItemID: "item-002", Text: "doosra", Source: "youtube", Language: "en"},
	}

	c := &Client{BaseURL: "http://labelstudio.example", Token: "secret-token", HTTP: mock}
	if err := c.PushTasks(context.Background(), 3, items); err != nil {
		t.Fatalf("PushTasks failed: %v", err)
	}

	req := mock.GetRequest(0)
	if req == nil {
		t.Fatal("expected a recorded request")
	}
	if req.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", req.Method)
	}
	wantURL := "http://labelstudio.example/api/projects/3/import"
	if req.URL.String() != wantURL {
		t.Errorf("expected URL %s, got %s", wantURL, req.URL.String())
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("expected JSON content type, got %q", got)
	}

	var pushed []ImportTask
	if err := json.NewDecoder(req.Body).Decode(&pushed); err != nil {
		t.Fatalf("failed to decode pushed tasks: %v", err)
	}
	if len(pushed) != 2 {
		t.Fatalf("expected 2 pushed tasks, got %d", len(pushed))
	}
	if pushed[0].Data.ID != "item-001" || pushed[1].Data.ID != "item-002" {
		t.Errorf("unexpected pushed item IDs: %q, %q", pushed[0].Data.ID, pushed[1].Data.ID)
	}
}

func TestPushTasksTransportError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddErrorResponse(errors.New("connection refused"))

	c := &Client{BaseURL: "http://labelstudio.example", HTTP: mock}
	err := c.PushTasks(context.Background(), 3, []db.Item{{ItemID: "item-001"}})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected wrapped transport error, got %v", err)
	}
}

func TestPushTasksRejected(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusUnauthorized, `{"detail": "invalid token"}`)

	c := &Client{BaseURL: "http://labelstudio.example", Token: "bad", HTTP: mock}
	err := c.PushTasks(context.Background(), 3, []db.Item{{ItemID: "item-001"}})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("expected status code in error, got %v", err)
	}
}
