package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sentinel-toxicity/internal/analytics"
	"sentinel-toxicity/internal/storage"
	"sentinel-toxicity/internal/toxicity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testTriggers = `
categories:
  - name: Aggro
    phrases: ['esti\s+(un\s+)?prost']
  - name: Violence
    phrases: ['te\s+omor']
`

type fakeFlags struct {
	guildID string
	since   time.Time
	limit   int
	flags   []storage.FlaggedMessage
	err     error
}

func (f *fakeFlags) ListFlaggedMessages(_ context.Context, guildID string, since time.Time, limit int) ([]storage.FlaggedMessage, error) {
	f.guildID, f.since, f.limit = guildID, since, limit
	return f.flags, f.err
}

type fakeReporter struct {
	since time.Time
}

func (f *fakeReporter) Report(_ context.Context, guildID string, since time.Time) (analytics.Report, error) {
	f.since = since
	return analytics.Report{Since: since, Total: 2, ByLabel: map[string]int{"Aggro": 2}}, nil
}

// newModel starts a fake moderation model; up controls the probe result.
func newModel(t *testing.T, up bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/api/classify":
			_, _ = w.Write([]byte(`{"labels":["OK"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newPipeline(t *testing.T, modelURL string) *toxicity.Pipeline {
	t.Helper()
	normalizer, err := toxicity.NewNormalizer(toxicity.NormalizerOptions{})
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}
	triggers, err := toxicity.ParseTriggers([]byte(testTriggers))
	if err != nil {
		t.Fatalf("triggers: %v", err)
	}
	return toxicity.NewPipeline(normalizer, triggers, toxicity.NewRemoteClassifier(modelURL+"/api"))
}

type fixture struct {
	server   *Server
	flags    *fakeFlags
	reporter *fakeReporter
}

func newFixture(t *testing.T, modelUp bool) fixture {
	t.Helper()
	model := newModel(t, modelUp)
	flags := &fakeFlags{}
	reporter := &fakeReporter{}
	server := New(newPipeline(t, model.URL), flags, reporter, zap.NewNop())
	server.now = func() time.Time { return time.Unix(1_000_000, 0) }
	return fixture{server: server, flags: flags, reporter: reporter}
}

func (f fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReady(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodGet, "/ready", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Violence") {
		t.Fatalf("expected categories in body, got %s", rec.Body.String())
	}

	down := newFixture(t, false)
	if rec := down.do(http.MethodGet, "/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("expected prometheus exposition")
	}
}

func TestClassify(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodPost, "/v1/classify", `{"text":"ESTI UN PROST!!! http://x.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var verdict toxicity.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if verdict.Score != 1 || len(verdict.Labels) != 1 || verdict.Labels[0] != "Aggro" {
		t.Fatalf("unexpected verdict %+v", verdict)
	}
	if verdict.Text != "esti un prost" {
		t.Fatalf("unexpected processed text %q", verdict.Text)
	}
}

func TestClassifyErrors(t *testing.T) {
	f := newFixture(t, true)
	if rec := f.do(http.MethodPost, "/v1/classify", `{"text":"!!"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/v1/classify", `{"body":"x"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	down := newFixture(t, false)
	if rec := down.do(http.MethodPost, "/v1/classify", `{"text":"esti un prost"}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestListFlags(t *testing.T) {
	f := newFixture(t, true)
	f.flags.flags = []storage.FlaggedMessage{{GuildID: "g1", Labels: []string{"Aggro"}, Score: 1}}

	rec := f.do(http.MethodGet, "/v1/guilds/g1/flags?limit=1000&since=2024-01-02T03:04:05Z", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.flags.guildID != "g1" || f.flags.limit != maxFlagLimit {
		t.Fatalf("unexpected query guild=%s limit=%d", f.flags.guildID, f.flags.limit)
	}
	if !f.flags.since.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected since %s", f.flags.since)
	}
	if !strings.Contains(rec.Body.String(), `"Aggro"`) {
		t.Fatalf("expected flags in body, got %s", rec.Body.String())
	}
}

func TestListFlagsValidation(t *testing.T) {
	f := newFixture(t, true)
	if rec := f.do(http.MethodGet, "/v1/guilds/g1/flags?since=yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for since, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/v1/guilds/g1/flags?limit=-1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit, got %d", rec.Code)
	}

	f.flags.err = errors.New("db down")
	if rec := f.do(http.MethodGet, "/v1/guilds/g1/flags", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if f.flags.limit != defaultFlagLimit {
		t.Fatalf("expected default limit, got %d", f.flags.limit)
	}
}

func TestReport(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(http.MethodGet, "/v1/guilds/g1/report?period=week", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := time.Unix(1_000_000, 0).Add(-7 * 24 * time.Hour)
	if !f.reporter.since.Equal(want) {
		t.Fatalf("expected since %s, got %s", want, f.reporter.since)
	}
	if rec := f.do(http.MethodGet, "/v1/guilds/g1/report?period=year", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
