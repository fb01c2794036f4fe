// Package certpdf renders training completion certificates as A4 landscape PDFs.
package certpdf

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// DateLayout renders dates on the certificate, e.g. "March 05, 2026".
const DateLayout = "January 02, 2006"

// Truncation limits for text that must fit on one line.
const (
	maxNameLength      = 40
	maxTitleLength     = 50
	maxSignatureLength = 22
	pageWidth          = 297.0
)

// Document is the content printed on one certificate.
type Document struct {
	VolunteerName string
	TrainingTitle string
	TrainingDate  time.Time
	DurationHours float64
	Instructor    string
	Number        string
	IssueDate     time.Time
	ExpiryDate    time.Time
	AdminName     string
}

// Renderer writes certificate PDFs below a base directory.
type Renderer struct {
	baseDir string
}

// NewRenderer creates a renderer storing files in baseDir/certificates.
func NewRenderer(baseDir string) *Renderer {
	return &Renderer{baseDir: baseDir}
}

// WriteFile renders doc to certificates/certificate_<registrationID>_<unix>.pdf.
// PRE: doc.Number is set
// POST: Returns the path relative to the base directory
func (r *Renderer) WriteFile(doc Document, registrationID string, now time.Time) (string, error) {
	dir := filepath.Join(r.baseDir, "certificates")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create certificate dir: %w", err)
	}
	name := fmt.Sprintf("certificate_%s_%d.pdf", registrationID, now.Unix())
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if err := Render(doc, f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return filepath.ToSlash(filepath.Join("certificates", name)), nil
}

// Open opens a stored certificate by its relative path.
// Paths escaping the base directory are refused.
func (r *Renderer) Open(relPath string) (*os.File, error) {
	full, err := r.resolve(relPath)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Remove deletes a certificate written by WriteFile. A missing file is not an error.
func (r *Renderer) Remove(relPath string) error {
	full, err := r.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (r *Renderer) resolve(relPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid certificate path %q", relPath)
	}
	return filepath.Join(r.baseDir, clean), nil
}

// Render writes the certificate PDF for doc to w.
func Render(doc Document, w io.Writer) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(25, 20, 25)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Border
	pdf.SetDrawColor(220, 38, 38)
	pdf.SetLineWidth(1.5)
	pdf.Rect(15, 15, 267, 180, "D")
	pdf.SetLineWidth(0.5)
	pdf.Rect(18, 18, 261, 174, "D")

	centered := func(y float64, style string, size float64, r, g, b int, text string) {
		pdf.SetFont("Arial", style, size)
		pdf.SetTextColor(r, g, b)
		pdf.SetY(y)
		pdf.CellFormat(0, 10, tr(text), "", 1, "C", false, 0, "")
	}

	centered(25, "B", 16, 0, 0, 0, "FIRE & RESCUE SERVICES MANAGEMENT")
	centered(32, "B", 12, 220, 38, 38, "OFFICE OF TRAINING AND CERTIFICATION")
	centered(45, "B", 28, 0, 0, 0, "CERTIFICATE OF COMPLETION")

	center := pageWidth / 2
	lineWidth := 120.0
	start := center - lineWidth/2
	pdf.SetLineWidth(0.75)
	pdf.Line(start, 58, start+lineWidth, 58)
	pdf.Line(start+5, 60, start+lineWidth-5, 60)

	centered(68, "I", 12, 100, 100, 100, "This is to certify that")
	centered(78, "B", 25, 220, 38, 38, truncate(strings.ToUpper(doc.VolunteerName), maxNameLength))
	centered(92, "", 10, 0, 0, 0, "has successfully completed the training program")
	centered(102, "B", 18, 220, 38, 38, QuotedTitle(doc.TrainingTitle))
	centered(112, "", 10, 0, 0, 0, "held on "+doc.TrainingDate.Format(DateLayout))
	centered(120, "", 10, 0, 0, 0, fmt.Sprintf("Duration: %s hours | Instructor: %s", formatHours(doc.DurationHours), doc.Instructor))
	centered(128, "", 9, 80, 80, 80, "Certificate No: "+doc.Number)
	centered(135, "", 9, 80, 80, 80, fmt.Sprintf("Issued: %s | Valid Until: %s", doc.IssueDate.Format(DateLayout), doc.ExpiryDate.Format(DateLayout)))
	centered(143, "I", 8, 150, 150, 150, "(Certificate is valid for 1 year from date of issue)")

	signature := func(x float64, name, role string) {
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetXY(x, 152)
		pdf.CellFormat(60, 10, "________________________", "", 0, "C", false, 0, "")
		pdf.SetXY(x, 157)
		pdf.CellFormat(60, 10, tr(truncate(strings.ToUpper(name), maxSignatureLength)), "", 0, "C", false, 0, "")
		pdf.SetXY(x, 162)
		pdf.CellFormat(60, 10, role, "", 0, "C", false, 0, "")
	}
	signature(center-70, doc.AdminName, "Administrator")
	if strings.TrimSpace(doc.Instructor) != "" {
		signature(center+10, doc.Instructor, "Instructor")
	}

	centered(172, "I", 7, 120, 120, 120, "This certificate is issued by Fire & Rescue Services Management System")

	return pdf.Output(w)
}

// QuotedTitle wraps the training title in quotes, shortening it to fit one line.
func QuotedTitle(title string) string {
	if r := []rune(title); len(r)+2 > maxTitleLength {
		return `"` + string(r[:maxTitleLength-3]) + `..."`
	}
	return `"` + title + `"`
}

// truncate shortens s to max characters, ending in "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
