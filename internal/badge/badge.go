// Package badge renders the printable identity badge for a participant: a
// US-Letter page with the adult badge on the top half and the student badge
// on the bottom half, both framed and watermarked.
package badge

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"registro/internal/model"
)

// Rendered is the tagged result of a render: either the document bytes or
// the path of a file written to disk. Callers branch on the concrete type.
type Rendered interface {
	rendered()
}

type RenderedBytes []byte

func (RenderedBytes) rendered() {}

type RenderedFile string

func (RenderedFile) rendered() {}

type Renderer interface {
	Render(p *model.Participant) (Rendered, error)
}

const (
	pageWidth   = 8.5 * 72 // 612
	pageHeight  = 11 * 72  // 792
	badgeHeight = pageHeight / 2
	badgeWidth  = pageWidth
)

// PDFRenderer draws badges with the fixed marathon layout. When OutputDir
// is set the document is written there as <folio>.pdf and a RenderedFile is
// returned, otherwise the bytes are returned directly. Missing image assets
// are skipped, never an error.
type PDFRenderer struct {
	AssetsDir string
	OutputDir string
}

func NewPDFRenderer(assetsDir, outputDir string) *PDFRenderer {
	return &PDFRenderer{AssetsDir: assetsDir, OutputDir: outputDir}
}

func (r *PDFRenderer) Render(p *model.Participant) (Rendered, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	d := &drawing{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
		r:   r,
		p:   p,
	}
	d.badge(0, badgeHeight, badgeHeight, modeAdult)
	d.badge(0, 0, badgeHeight, modeStudent)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to draw badge: %w", err)
	}

	if r.OutputDir == "" {
		var buf bytes.Buffer
		if err := pdf.Output(&buf); err != nil {
			return nil, fmt.Errorf("failed to render badge: %w", err)
		}
		return RenderedBytes(buf.Bytes()), nil
	}

	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create badge output dir: %w", err)
	}
	name := p.Folio
	if name == "" {
		name = "SIN-FOLIO"
	}
	path := filepath.Join(r.OutputDir, name+".pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return nil, fmt.Errorf("failed to write badge file: %w", err)
	}
	return RenderedFile(path), nil
}

const (
	modeAdult   = "ADULTO"
	modeStudent = "ALUMNO"
)

type rgb struct{ r, g, b int }

var (
	azul  = rgb{0x00, 0x1B, 0x5E}
	rojo  = rgb{0xC6, 0x28, 0x28}
	verde = rgb{0x2E, 0x7D, 0x32}
	gris  = rgb{0x66, 0x66, 0x66}
	negro = rgb{0, 0, 0}
)

// drawing holds the per-render state. All y coordinates below are measured
// from the bottom of the page, matching the original layout numbers; text
// calls convert at the edge.
type drawing struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	r   *PDFRenderer
	p   *model.Participant
}

func (d *drawing) badge(x0, y0, alto float64, mode string) {
	const margin = 18
	ix := x0 + margin
	iy := y0 + margin
	iw := badgeWidth - 2*margin
	ih := alto - 2*margin

	d.watermark(ix, iy, iw, ih)

	// Frame
	d.pdf.SetDrawColor(azul.r, azul.g, azul.b)
	d.pdf.SetLineWidth(2)
	d.pdf.Rect(ix, pageHeight-(iy+ih), iw, ih, "D")

	const (
		headerTopPad = 16
		headerH      = 110
	)
	headerTop := iy + ih - headerTopPad

	d.image("logo_lma.png", ix+6, headerTop-100, 200, 100)
	d.image("zorro_maraton.png", ix+iw-210-6, headerTop-100, 210, 100)

	d.setTextColor(azul)
	d.pdf.SetFont("Helvetica", "B", 26)
	d.centred(ix+iw/2, headerTop-22, "MARATÓN LMA 2025")

	// Tricolor rules under the title
	d.pdf.SetLineWidth(4)
	base := headerTop - 50
	const lateral = 150
	d.rule(azul, ix+lateral, base, ix+iw-lateral)
	d.rule(rojo, ix+lateral, base-8, ix+iw-lateral)
	d.rule(verde, ix+lateral, base-16, ix+iw-lateral)

	y := headerTop - headerH - 40

	adultName := strings.ToUpper(d.p.FullName)
	studentName := strings.ToUpper(d.p.ChildName)
	gradeTxt := strings.ToUpper(d.p.Grade)
	roleTxt := strings.ToUpper(model.RoleLabel(d.p.Role))

	cx := ix + iw/2

	if mode == modeAdult {
		d.setTextColor(negro)
		d.pdf.SetFont("Helvetica", "B", 28)
		d.centred(cx, y, orDefault(adultName, "ACOMPAÑANTE"))
		y -= 36

		d.setTextColor(gris)
		d.pdf.SetFont("Helvetica", "", 13)
		d.centred(cx, y, fmt.Sprintf("Alumno(a): %s   |   Grado: %s",
			orDefault(studentName, "--"), orDefault(gradeTxt, "--")))
		y -= 28

		d.setTextColor(azul)
		d.pdf.SetFont("Helvetica", "B", 18)
		d.centred(cx, y, orDefault(roleTxt, "--"))
		y -= 45

		d.setTextColor(negro)
		d.pdf.SetFont("Helvetica", "B", 42)
		d.centred(cx, y, d.p.Folio)
	} else {
		d.setTextColor(negro)
		d.pdf.SetFont("Helvetica", "B", 30)
		d.centred(cx, y, orDefault(studentName, "ALUMNO"))
		y -= 40

		d.pdf.SetFont("Helvetica", "B", 18)
		d.centred(cx, y, "GRADO: "+orDefault(gradeTxt, "--"))
		y -= 30

		d.setTextColor(azul)
		d.pdf.SetFont("Helvetica", "B", 16)
		d.centred(cx, y, "CATEGORÍA: "+orDefault(roleTxt, "--"))
		y -= 45

		d.setTextColor(negro)
		d.pdf.SetFont("Helvetica", "B", 40)
		d.centred(cx, y, d.p.Folio)
	}

	d.setTextColor(gris)
	d.pdf.SetFont("Helvetica", "I", 11)
	d.centred(cx, iy+20, "Imprime y presenta este gafete el día del evento")

	localTime := time.Now().In(time.FixedZone("UTC-6", -6*3600)).Format("02/01/2006 15:04")
	d.pdf.SetFont("Helvetica", "", 9)
	d.right(ix+iw-10, iy+16, "Generado: "+localTime)
}

// watermark paints the school crest at 8% opacity, centered on the badge.
func (d *drawing) watermark(ix, iy, iw, ih float64) {
	path := filepath.Join(d.r.AssetsDir, "liceo.png")
	if _, err := os.Stat(path); err != nil {
		return
	}
	size := iw
	if ih < iw {
		size = ih
	}
	size *= 0.60
	cx := ix + iw/2
	cy := iy + ih/2

	d.pdf.SetAlpha(0.08, "Normal")
	d.pdf.ImageOptions(path, cx-size/2, pageHeight-(cy+size/2), size, size,
		false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	d.pdf.SetAlpha(1, "Normal")
}

func (d *drawing) image(name string, x, y, w, h float64) {
	path := filepath.Join(d.r.AssetsDir, name)
	if _, err := os.Stat(path); err != nil {
		return
	}
	d.pdf.ImageOptions(path, x, pageHeight-(y+h), w, h,
		false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
}

func (d *drawing) rule(c rgb, x1, y, x2 float64) {
	d.pdf.SetDrawColor(c.r, c.g, c.b)
	d.pdf.Line(x1, pageHeight-y, x2, pageHeight-y)
}

func (d *drawing) setTextColor(c rgb) {
	d.pdf.SetTextColor(c.r, c.g, c.b)
}

// centred draws s with its baseline at y (from the bottom), centered on cx.
func (d *drawing) centred(cx, y float64, s string) {
	t := d.tr(s)
	d.pdf.Text(cx-d.pdf.GetStringWidth(t)/2, pageHeight-y, t)
}

func (d *drawing) right(x, y float64, s string) {
	t := d.tr(s)
	d.pdf.Text(x-d.pdf.GetStringWidth(t), pageHeight-y, t)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
