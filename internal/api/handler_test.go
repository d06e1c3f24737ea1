//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gpotter/worksheetbot/internal/assistant"
	"github.com/gpotter/worksheetbot/internal/domain"
	"github.com/gpotter/worksheetbot/internal/session"
	"github.com/gpotter/worksheetbot/internal/worksheet"
)

type fakeAssistant struct {
	lastGenerate assistant.GenerateRequest
	lastChat     assistant.ChatRequest
	generation   *assistant.Generation
	reply        *assistant.ChatReply
	deltas       []string
	err          error
}

func (f *fakeAssistant) GenerateWorksheet(_ context.Context, req assistant.GenerateRequest) (*assistant.Generation, error) {
	f.lastGenerate = req
	if f.err != nil {
		return nil, f.err
	}
	return f.generation, nil
}

func (f *fakeAssistant) Chat(_ context.Context, req assistant.ChatRequest) (*assistant.ChatReply, error) {
	f.lastChat = req
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeAssistant) StreamChat(_ context.Context, req assistant.ChatRequest, onDelta func(string)) (*assistant.ChatReply, error) {
	f.lastChat = req
	if f.err != nil {
		return nil, f.err
	}
	for _, d := range f.deltas {
		onDelta(d)
	}
	return f.reply, nil
}

type fakeRepo struct {
	worksheets map[string]*domain.WorksheetMeta
	listLimit  int
	listed     []*domain.WorksheetMeta
	pingErr    error
	listErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{worksheets: make(map[string]*domain.WorksheetMeta)}
}

func (f *fakeRepo) InsertWorksheet(_ context.Context, meta *domain.WorksheetMeta) error {
	f.worksheets[meta.ID] = meta
	return nil
}

func (f *fakeRepo) GetWorksheet(_ context.Context, id string) (*domain.WorksheetMeta, error) {
	return f.worksheets[id], nil
}

func (f *fakeRepo) ListRecentWorksheets(_ context.Context, limit int) ([]*domain.WorksheetMeta, error) {
	f.listLimit = limit
	return f.listed, f.listErr
}

func (f *fakeRepo) Ping(_ context.Context) error { return f.pingErr }
func (f *fakeRepo) Close() error                 { return nil }

// newRouter wires the handlers under test behind the session middleware,
// matching the production middleware order.
func newRouter(svc Assistant, repo *fakeRepo) chi.Router {
	r := chi.NewRouter()
	r.Use(session.Middleware(true))

	base := NewHandler(svc, repo)
	NewWorksheetHandler(base).RegisterRoutes(r)
	NewChatHandler(base).RegisterRoutes(r)
	NewHealthHandler(repo).RegisterHealth(r)
	return r
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestGenerateWorksheet(t *testing.T) {
	t.Parallel()

	svc := &fakeAssistant{
		generation: &assistant.Generation{
			Meta: domain.WorksheetMeta{
				ID:        "ws-1",
				Child:     "Landon",
				Title:     "Space Math",
				CreatedAt: time.Now(),
			},
			Worksheet: worksheet.Worksheet{Title: "Space Math"},
		},
	}
	router := newRouter(svc, newFakeRepo())

	req := httptest.NewRequest(http.MethodPost, "/api/worksheets",
		strings.NewReader(`{"child":"Landon","request":"space math"}`))
	req.Header.Set(session.HeaderName, "tab-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastGenerate.SessionID != "tab-1" {
		t.Errorf("expected session id tab-1, got %q", svc.lastGenerate.SessionID)
	}
	if svc.lastGenerate.Child != "Landon" {
		t.Errorf("expected child Landon, got %q", svc.lastGenerate.Child)
	}

	var got assistant.Generation
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Meta.ID != "ws-1" {
		t.Errorf("expected meta id ws-1, got %q", got.Meta.ID)
	}
}

func TestGenerateWorksheetValidation(t *testing.T) {
	t.Parallel()

	router := newRouter(&fakeAssistant{}, newFakeRepo())

	cases := []struct {
		name string
		body string
	}{
		{"empty request text", `{"child":"Landon","request":"  "}`},
		{"malformed json", `{"child":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/worksheets", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestGenerateWorksheetUpstreamFailure(t *testing.T) {
	t.Parallel()

	svc := &fakeAssistant{err: errors.New("upstream exploded")}
	router := newRouter(svc, newFakeRepo())

	req := httptest.NewRequest(http.MethodPost, "/api/worksheets",
		strings.NewReader(`{"request":"space math"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestListWorksheets(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.listed = []*domain.WorksheetMeta{
		{ID: "ws-2", Child: "Declan", Title: "Dino Counting"},
		{ID: "ws-1", Child: "Landon", Title: "Space Math"},
	}
	router := newRouter(&fakeAssistant{}, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/worksheets?limit=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if repo.listLimit != 2 {
		t.Errorf("expected limit 2 forwarded, got %d", repo.listLimit)
	}

	var got struct {
		Worksheets []*domain.WorksheetMeta `json:"worksheets"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Worksheets) != 2 || got.Worksheets[0].ID != "ws-2" {
		t.Fatalf("unexpected worksheets payload: %+v", got.Worksheets)
	}
}

func TestListWorksheetsEmptyAndBadLimit(t *testing.T) {
	t.Parallel()

	router := newRouter(&fakeAssistant{}, newFakeRepo())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"worksheets":[]`) {
		t.Errorf("expected empty array, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets?limit=zero", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestWorksheetFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "landon_worksheet.html")
	if err := os.WriteFile(htmlPath, []byte("<html>sheet</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := newFakeRepo()
	repo.worksheets["ws-1"] = &domain.WorksheetMeta{ID: "ws-1", HTMLPath: htmlPath}
	router := newRouter(&fakeAssistant{}, repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/ws-1/file", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "sheet") {
		t.Errorf("expected file contents, got %s", w.Body.String())
	}

	// PDF was never rendered for this worksheet.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/ws-1/file?format=pdf", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing pdf, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/nope/file", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/ws-1/file?format=docx", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", w.Code)
	}
}

func TestChat(t *testing.T) {
	t.Parallel()

	svc := &fakeAssistant{reply: &assistant.ChatReply{Reply: "The Eagles won."}}
	router := newRouter(svc, newFakeRepo())

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"who won last night?"}`))
	req.Header.Set(session.HeaderName, "tab-2")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.lastChat.SessionID != "tab-2" {
		t.Errorf("expected session id tab-2, got %q", svc.lastChat.SessionID)
	}
	if !strings.Contains(w.Body.String(), "The Eagles won.") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestChatValidation(t *testing.T) {
	t.Parallel()

	router := newRouter(&fakeAssistant{}, newFakeRepo())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":""}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	router := newRouter(&fakeAssistant{}, repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	repo.pingErr = errors.New("locked")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when database is down, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "degraded") {
		t.Errorf("expected degraded status, got %s", w.Body.String())
	}
}
