package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jaam8/council_bot/internal/models"
	"github.com/jaam8/council_bot/pkg/edge"
	"go.uber.org/zap"
)

type call struct {
	Path   string
	Region string
	Body   map[string]any
	Auth   string
}

type reply struct {
	status int
	body   string
}

// fakeEdge answers from a per-path, per-region script and records calls.
type fakeEdge struct {
	mu      sync.Mutex
	calls   []call
	replies map[string]reply
	handle  func(c call) (reply, bool)
}

func newFakeEdge() *fakeEdge {
	return &fakeEdge{replies: make(map[string]reply)}
}

func (f *fakeEdge) on(path, region string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[path+"|"+region] = reply{status: status, body: body}
}

func (f *fakeEdge) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeEdge) regions(path string) []string {
	var out []string
	for _, c := range f.recorded() {
		if c.Path == path {
			out = append(out, c.Region)
		}
	}
	return out
}

func (f *fakeEdge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := call{Path: r.URL.Path[1:], Auth: r.Header.Get("Authorization")}
	if r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&c.Body)
		if region, ok := c.Body["region"].(string); ok {
			c.Region = region
		}
	} else {
		c.Region = r.URL.Query().Get("region")
	}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	rep, ok := f.replies[c.Path+"|"+c.Region]
	if !ok {
		rep, ok = f.replies[c.Path+"|"]
	}
	handle := f.handle
	f.mu.Unlock()

	if handle != nil {
		if custom, handled := handle(c); handled {
			rep, ok = custom, true
		}
	}
	if !ok {
		rep = reply{status: http.StatusNotFound, body: `{"ok":false}`}
	}
	w.WriteHeader(rep.status)
	_, _ = w.Write([]byte(rep.body))
}

func newEdgeClient(t *testing.T, f *fakeEdge) *edge.Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return edge.New(edge.Config{
		BaseURL:      srv.URL,
		AdminAPIKey:  "admin-key",
		GetTimeout:   time.Second,
		PostTimeout:  time.Second,
		AdminTimeout: time.Second,
	}, zap.NewNop())
}

func numericIDs(values ...string) []models.CandidateID {
	ids := make([]models.CandidateID, len(values))
	for i, v := range values {
		ids[i] = models.NumericID(v)
	}
	return ids
}
