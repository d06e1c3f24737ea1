package render

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/gpotter/worksheetbot/internal/prompt"
	"github.com/gpotter/worksheetbot/internal/worksheet"
)

// PDF renders worksheets as paginated PDF files.
type PDF struct {
	outDir string
}

// NewPDF ensures outDir exists and returns a PDF renderer.
func NewPDF(outDir string) (*PDF, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &PDF{outDir: outDir}, nil
}

// Render writes the worksheet to a timestamped PDF file and returns its path.
func (r *PDF) Render(ws worksheet.Worksheet, child string, ts time.Time) (string, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	// Core fonts are latin-1; translate so names like "Pokémon" survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(ws.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Date: %s • Created for %s", prompt.FormatDate(ts), child)), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Instructions:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 10, tr(ws.Instructions), "", "L", false)

	for _, section := range ws.Sections {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(section.Name), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		for i, q := range section.Questions {
			pdf.MultiCell(0, 10, tr(fmt.Sprintf("%d. %s", i+1, q)), "", "L", false)
		}
	}

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Parent Tips:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 10, tr(ws.Tips), "", "L", false)

	path := filepath.Join(r.outDir, FileName(child, ts, "pdf"))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf worksheet: %w", err)
	}
	return path, nil
}
