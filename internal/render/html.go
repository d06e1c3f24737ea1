// Package render materializes worksheets as HTML and PDF documents.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gpotter/worksheetbot/internal/prompt"
	"github.com/gpotter/worksheetbot/internal/worksheet"
)

//go:embed templates/worksheet.html.tmpl
var templateFS embed.FS

// fileTimestampLayout keeps artifact names sortable.
const fileTimestampLayout = "20060102_150405"

// FileName returns the artifact name for a worksheet generated for child at
// ts, e.g. "landon_worksheet_20260826_101500.html".
func FileName(child string, ts time.Time, ext string) string {
	return fmt.Sprintf("%s_worksheet_%s.%s", strings.ToLower(child), ts.Format(fileTimestampLayout), ext)
}

type htmlData struct {
	Title        string
	Instructions string
	Tips         string
	Date         string
	Child        string
	Sections     []worksheet.Section
}

// HTML renders worksheets to standalone HTML files.
type HTML struct {
	outDir string
	tmpl   *template.Template
}

// NewHTML parses the embedded sheet template and ensures outDir exists.
func NewHTML(outDir string) (*HTML, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/worksheet.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse worksheet template: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &HTML{outDir: outDir, tmpl: tmpl}, nil
}

// Execute writes the rendered sheet to w without touching the filesystem.
func (r *HTML) Execute(w io.Writer, ws worksheet.Worksheet, child string, ts time.Time) error {
	data := htmlData{
		Title:        ws.Title,
		Instructions: ws.Instructions,
		Tips:         ws.Tips,
		Date:         prompt.FormatDate(ts),
		Child:        child,
		Sections:     ws.Sections,
	}
	if err := r.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render html worksheet: %w", err)
	}
	return nil
}

// Render writes the worksheet to a timestamped file and returns its path.
func (r *HTML) Render(ws worksheet.Worksheet, child string, ts time.Time) (string, error) {
	var buf bytes.Buffer
	if err := r.Execute(&buf, ws, child, ts); err != nil {
		return "", err
	}

	path := filepath.Join(r.outDir, FileName(child, ts, "html"))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write html worksheet: %w", err)
	}
	return path, nil
}
