package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"registro/internal/api/api"
	"registro/internal/badge"
	"registro/internal/folio"
	"registro/internal/model"
	"registro/internal/repo"
	"registro/internal/service"
)

// fakeRepo keeps participants in memory and allocates folios with the same
// allocator the real repository uses.
type fakeRepo struct {
	participants []model.Participant
	nextID       int64
	failRegister error
}

func (f *fakeRepo) Register(_ context.Context, p *model.Participant) error {
	if f.failRegister != nil {
		return f.failRegister
	}
	prefix := folio.Prefix(p.Plantel)
	var existing []string
	for _, q := range f.participants {
		existing = append(existing, q.Folio)
	}
	f.nextID++
	p.ID = f.nextID
	p.Folio = folio.Next(prefix, existing)
	p.CreatedAt = time.Date(2025, 10, 3, 9, 30, 0, 0, time.UTC)
	f.participants = append(f.participants, *p)
	return nil
}

func (f *fakeRepo) UpdateFolio(_ context.Context, id int64, folioValue string) error {
	for i := range f.participants {
		if f.participants[i].ID == id {
			f.participants[i].Folio = folioValue
			return nil
		}
	}
	return repo.ErrParticipantNotFound
}

func (f *fakeRepo) ListAll(context.Context) ([]model.Participant, error) {
	out := make([]model.Participant, len(f.participants))
	copy(out, f.participants)
	return out, nil
}

func (f *fakeRepo) ListForExport(ctx context.Context) ([]model.Participant, error) {
	return f.ListAll(ctx)
}

func (f *fakeRepo) FindByFolio(_ context.Context, folioValue string) (*model.Participant, error) {
	for _, p := range f.participants {
		if p.Folio != "" && strings.EqualFold(p.Folio, folioValue) {
			q := p
			return &q, nil
		}
	}
	return nil, repo.ErrParticipantNotFound
}

func (f *fakeRepo) FindByID(_ context.Context, id int64) (*model.Participant, error) {
	for _, p := range f.participants {
		if p.ID == id {
			q := p
			return &q, nil
		}
	}
	return nil, repo.ErrParticipantNotFound
}

func (f *fakeRepo) CountAll(context.Context) (int, error) {
	return len(f.participants), nil
}

func (f *fakeRepo) CountByPlantel(context.Context) ([]repo.GroupCount, error) {
	return f.grouped(func(p model.Participant) string { return p.Plantel }), nil
}

func (f *fakeRepo) CountByRole(context.Context) ([]repo.GroupCount, error) {
	return f.grouped(func(p model.Participant) string { return p.Role }), nil
}

func (f *fakeRepo) grouped(key func(model.Participant) string) []repo.GroupCount {
	counts := map[string]int{}
	var order []string
	for _, p := range f.participants {
		k := key(p)
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}
	var out []repo.GroupCount
	for _, k := range order {
		out = append(out, repo.GroupCount{Value: k, Total: counts[k]})
	}
	return out
}

func (f *fakeRepo) MigrateUp(string) error   { return nil }
func (f *fakeRepo) MigrateDown(string) error { return nil }

type fakeRenderer struct {
	err error
}

func (r *fakeRenderer) Render(*model.Participant) (badge.Rendered, error) {
	if r.err != nil {
		return nil, r.err
	}
	return badge.RenderedBytes("%PDF-1.4 fake"), nil
}

type fakePublisher struct {
	published [][]byte
}

func (p *fakePublisher) Publish(message []byte, _ int) error {
	p.published = append(p.published, message)
	return nil
}

func newTestApp(t *testing.T, store *fakeRepo, renderer badge.Renderer, pub service.Publisher) *ginext.Engine {
	t.Helper()
	zlog.Init()
	svc := service.NewService(store, &zlog.Logger, renderer, pub)
	return api.NewRouters(&api.Routers{Service: svc})
}

func doJSON(app *ginext.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	return w
}

func TestRegisterEndToEnd(t *testing.T) {
	store := &fakeRepo{}
	pub := &fakePublisher{}
	app := newTestApp(t, store, &fakeRenderer{}, pub)

	w := doJSON(app, http.MethodPost, "/register/",
		`{"full_name":"Ana Pérez","plantel":"primaria","role":"acompañante mujer"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="Primaria0001.pdf"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	if len(store.participants) != 1 {
		t.Fatalf("expected 1 stored participant, got %d", len(store.participants))
	}
	p := store.participants[0]
	if p.Plantel != "Primaria" || p.Role != "ACOMPAÑANTE MUJER" || p.Folio != "Primaria0001" {
		t.Errorf("stored participant = %+v", p)
	}
	if len(pub.published) != 1 {
		t.Errorf("expected 1 published message, got %d", len(pub.published))
	}
}

func TestRegisterStudentMissingChild(t *testing.T) {
	store := &fakeRepo{}
	app := newTestApp(t, store, &fakeRenderer{}, &fakePublisher{})

	w := doJSON(app, http.MethodPost, "/register/",
		`{"full_name":"Luis Gómez","plantel":"secundaria","role":"alumno"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var fe map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &fe); err != nil {
		t.Fatalf("response is not a field-error object: %v", err)
	}
	if _, ok := fe["child_name"]; !ok {
		t.Errorf("expected child_name error, got %v", fe)
	}
	if len(store.participants) != 0 {
		t.Errorf("rejected submission must not be persisted")
	}
}

func TestRegisterRenderFailureKeepsRecord(t *testing.T) {
	store := &fakeRepo{}
	app := newTestApp(t, store, &fakeRenderer{err: fmt.Errorf("font missing")}, &fakePublisher{})

	w := doJSON(app, http.MethodPost, "/register/",
		`{"full_name":"Ana Pérez","plantel":"primaria","role":"abuelita"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad 500 body: %v", err)
	}
	if body["error"] == "" || body["detail"] == "" {
		t.Errorf("500 body = %v, want {error, detail}", body)
	}
	if len(store.participants) != 1 {
		t.Errorf("record must stay committed when rendering fails")
	}
}

func TestReprintByFolioAndByID(t *testing.T) {
	store := &fakeRepo{}
	app := newTestApp(t, store, &fakeRenderer{}, &fakePublisher{})

	for i := 0; i < 3; i++ {
		w := doJSON(app, http.MethodPost, "/register/",
			`{"full_name":"Socia `+fmt.Sprint(i)+`","plantel":"secundaria","role":"tutor"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("seed registration %d failed: %d", i, w.Code)
		}
	}

	byFolio := doJSON(app, http.MethodGet, "/participants/reprint/?q=secundaria0003", "")
	if byFolio.Code != http.StatusOK {
		t.Fatalf("reprint by folio: status %d, body %s", byFolio.Code, byFolio.Body.String())
	}

	byID := doJSON(app, http.MethodGet, "/participants/reprint/?q=3", "")
	if byID.Code != http.StatusOK {
		t.Fatalf("reprint by id: status %d", byID.Code)
	}
	if byFolio.Header().Get("Content-Disposition") != byID.Header().Get("Content-Disposition") {
		t.Errorf("folio and id lookups resolved to different records")
	}
}

func TestReprintMissingQ(t *testing.T) {
	app := newTestApp(t, &fakeRepo{}, &fakeRenderer{}, &fakePublisher{})

	w := doJSON(app, http.MethodGet, "/participants/reprint/", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["detail"] == "" {
		t.Errorf("missing q should answer {detail}, got %s", w.Body.String())
	}
}

func TestReprintNotFound(t *testing.T) {
	app := newTestApp(t, &fakeRepo{}, &fakeRenderer{}, &fakePublisher{})

	w := doJSON(app, http.MethodGet, "/participants/reprint/?q=Prepa9999", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestListAndStats(t *testing.T) {
	store := &fakeRepo{}
	app := newTestApp(t, store, &fakeRenderer{}, &fakePublisher{})

	seeds := []string{
		`{"full_name":"Ana Pérez","plantel":"primaria","role":"acompañante mujer"}`,
		`{"full_name":"Juan Ruiz","plantel":"primaria","role":"abuelito"}`,
		`{"full_name":"Eva Díaz","plantel":"preparatoria","role":"acompañante mujer"}`,
	}
	for _, s := range seeds {
		if w := doJSON(app, http.MethodPost, "/register/", s); w.Code != http.StatusOK {
			t.Fatalf("seed failed: %d %s", w.Code, w.Body.String())
		}
	}

	list := doJSON(app, http.MethodGet, "/participants/", "")
	if list.Code != http.StatusOK {
		t.Fatalf("list status = %d", list.Code)
	}
	var records []map[string]any
	if err := json.Unmarshal(list.Body.Bytes(), &records); err != nil {
		t.Fatalf("list is not a JSON array: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("list len = %d, want 3", len(records))
	}

	stats := doJSON(app, http.MethodGet, "/participants/stats/", "")
	if stats.Code != http.StatusOK {
		t.Fatalf("stats status = %d", stats.Code)
	}
	var sr struct {
		Total      int `json:"total"`
		PorPlantel []struct {
			Plantel string `json:"plantel"`
			Total   int    `json:"total"`
		} `json:"por_plantel"`
		PorRole []struct {
			Role  string `json:"role"`
			Total int    `json:"total"`
		} `json:"por_role"`
	}
	if err := json.Unmarshal(stats.Body.Bytes(), &sr); err != nil {
		t.Fatalf("bad stats body: %v", err)
	}
	if sr.Total != 3 || len(sr.PorPlantel) != 2 || len(sr.PorRole) != 2 {
		t.Errorf("stats = %+v", sr)
	}
}

func TestExportCSVHeader(t *testing.T) {
	store := &fakeRepo{}
	app := newTestApp(t, store, &fakeRenderer{}, &fakePublisher{})

	if w := doJSON(app, http.MethodPost, "/register/",
		`{"full_name":"Ana Pérez","plantel":"primaria","role":"tutor"}`); w.Code != http.StatusOK {
		t.Fatalf("seed failed: %d", w.Code)
	}

	w := doJSON(app, http.MethodGet, "/participants/export_csv/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	wantHeader := "ID,Folio,Nombre participante,Plantel,Nombre alumno,Grado,Rol,Fecha registro"
	if strings.TrimSpace(lines[0]) != wantHeader {
		t.Errorf("header = %q, want %q", lines[0], wantHeader)
	}
	if !strings.Contains(lines[1], "Primaria0001") || !strings.Contains(lines[1], "2025-10-03 09:30") {
		t.Errorf("row = %q", lines[1])
	}
}
