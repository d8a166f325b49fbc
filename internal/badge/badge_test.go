package badge

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"registro/internal/model"
)

func sampleParticipant() *model.Participant {
	return &model.Participant{
		ID:        1,
		FullName:  "Ana Pérez",
		Plantel:   model.PlantelPrimaria,
		ChildName: "Diego Pérez",
		Grade:     "3° Primaria",
		Role:      model.RoleAcompananteMujer,
		Folio:     "Primaria0001",
	}
}

func TestRenderBytes(t *testing.T) {
	r := NewPDFRenderer(t.TempDir(), "") // no assets present, no output dir

	rendered, err := r.Render(sampleParticipant())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	b, ok := rendered.(RenderedBytes)
	if !ok {
		t.Fatalf("expected RenderedBytes, got %T", rendered)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Errorf("output does not look like a PDF: %q", b[:min(8, len(b))])
	}
}

func TestRenderFile(t *testing.T) {
	out := t.TempDir()
	r := NewPDFRenderer(t.TempDir(), out)

	rendered, err := r.Render(sampleParticipant())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	f, ok := rendered.(RenderedFile)
	if !ok {
		t.Fatalf("expected RenderedFile, got %T", rendered)
	}
	if want := filepath.Join(out, "Primaria0001.pdf"); string(f) != want {
		t.Errorf("path = %q, want %q", f, want)
	}
	if _, err := os.Stat(string(f)); err != nil {
		t.Errorf("badge file not written: %v", err)
	}
}

func TestRenderFileWithoutFolio(t *testing.T) {
	out := t.TempDir()
	r := NewPDFRenderer(t.TempDir(), out)

	p := sampleParticipant()
	p.Folio = ""
	rendered, err := r.Render(p)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	f := rendered.(RenderedFile)
	if filepath.Base(string(f)) != "SIN-FOLIO.pdf" {
		t.Errorf("fallback filename = %q, want SIN-FOLIO.pdf", filepath.Base(string(f)))
	}
}
