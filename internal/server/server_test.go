package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jira-connector/internal/connector"
)

type fakeConnector struct {
	healthy bool
	result  connector.PostResult
	posted  []connector.TimeGroup
}

func (f *fakeConnector) PerformTagUpdate(ctx context.Context) error { return nil }
func (f *fakeConnector) SyncNewIssues(ctx context.Context) error    { return nil }
func (f *fakeConnector) RefreshIssues(ctx context.Context) error    { return nil }
func (f *fakeConnector) Healthy(ctx context.Context) bool           { return f.healthy }

func (f *fakeConnector) PostTime(ctx context.Context, tg connector.TimeGroup) connector.PostResult {
	f.posted = append(f.posted, tg)
	return f.result
}

func TestPing(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(&fakeConnector{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Errorf("GET /ping = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		healthy bool
		want    int
	}{
		{true, http.StatusOK},
		{false, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		NewRouter(&fakeConnector{healthy: tt.healthy}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rec.Code != tt.want {
			t.Errorf("healthy=%v: status = %d, want %d", tt.healthy, rec.Code, tt.want)
		}
		var body healthResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Healthy != tt.healthy {
			t.Errorf("healthy=%v: body = %+v, %v", tt.healthy, body, err)
		}
	}
}

func TestReceiveTimePosted(t *testing.T) {
	tests := []struct {
		status connector.PostStatus
		want   int
	}{
		{connector.StatusSuccess, http.StatusOK},
		{connector.StatusPermanentFailure, http.StatusBadRequest},
		{connector.StatusTransientFailure, http.StatusInternalServerError},
	}

	payload := `{"groupId":"g1","tags":[{"name":"WT-1","path":"/Jira/WT-1"}],"totalDurationSecs":60}`

	for _, tt := range tests {
		fake := &fakeConnector{result: connector.PostResult{Status: tt.status, Message: "done"}}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/receiveTimePostedEvent", strings.NewReader(payload))
		NewRouter(fake).ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.status, rec.Code, tt.want)
		}
		var body postTimeResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Status != tt.status || body.Message != "done" {
			t.Errorf("%s: body = %+v, %v", tt.status, body, err)
		}
		if len(fake.posted) != 1 || fake.posted[0].GroupID != "g1" || fake.posted[0].Tags[0].Name != "WT-1" {
			t.Errorf("%s: posted = %+v", tt.status, fake.posted)
		}
	}
}

func TestReceiveTimePosted_MalformedBody(t *testing.T) {
	fake := &fakeConnector{}
	rec := httptest.NewRecorder()
	NewRouter(fake).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/receiveTimePostedEvent", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(fake.posted) != 0 {
		t.Error("malformed body reached the connector")
	}
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(&fakeConnector{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receiveTimePostedEvent", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /receiveTimePostedEvent = %d, want 405", rec.Code)
	}
}
