// Package pdfgen renders quote letters and commissioning reports as PDF.
// Documents are described as pdfcpu JSON forms and rendered file-based; each
// render gets its own workspace directory under the configured work dir.
package pdfgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/yourusername/klimaatdesk/internal/installations"
	"github.com/yourusername/klimaatdesk/internal/quotes"
)

// Service renders PDFs into outDir, using workDir for intermediate files.
type Service struct {
	workDir string
	outDir  string
	now     func() time.Time
}

// NewService creates both directories if needed.
func NewService(workDir, outDir string) (*Service, error) {
	for _, dir := range []string{workDir, outDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create pdf dir %s: %w", dir, err)
		}
	}
	return &Service{workDir: workDir, outDir: outDir, now: time.Now}, nil
}

// QuotePDF renders the quote letter and returns the path of the final PDF.
func (s *Service) QuotePDF(ctx context.Context, q quotes.Quote, est quotes.Estimate) (string, error) {
	lines := []string{
		"Offerte warmtepomp",
		"",
		"Referentie: " + q.Reference,
		"Datum: " + s.now().Format("02-01-2006"),
		"",
		"Ten name van: " + q.Name,
		fmt.Sprintf("Woonoppervlak: %d m2, isolatie %s", q.DwellingArea, q.Insulation),
		fmt.Sprintf("Geadviseerd vermogen: %.1f kW (%s)", est.CapacityKW, q.ProductLine),
		"",
	}
	for _, item := range est.Lines {
		lines = append(lines, fmt.Sprintf("%-42s %14s", item.Description, formatEuro(item.AmountCents)))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("%-42s %14s", "Subtotaal", formatEuro(est.SubtotalCents)),
		fmt.Sprintf("%-42s %14s", "BTW 21%", formatEuro(est.VATCents)),
		fmt.Sprintf("%-42s %14s", "Totaal", formatEuro(est.TotalCents)),
		"",
		"Deze offerte is 30 dagen geldig.",
	)
	return s.render(ctx, q.Reference+".pdf", lines)
}

// CommissioningPDF renders the commissioning report for an installation and
// returns the path of the final PDF.
func (s *Service) CommissioningPDF(ctx context.Context, inst installations.Installation) (string, error) {
	lines := []string{
		"Inbedrijfstellingsrapport",
		"",
		"Klant: " + inst.CustomerName,
		"Adres: " + inst.Address,
		"Toestel: " + inst.EquipmentModel,
	}
	if inst.SerialNumber != "" {
		lines = append(lines, "Serienummer: "+inst.SerialNumber)
	}
	lines = append(lines,
		"Installatiedatum: "+inst.InstalledOn.Format("02-01-2006"),
		fmt.Sprintf("Onderhoudsinterval: %d maanden", inst.MaintenanceMonths),
		"Opzoekcode: "+inst.LookupCode,
	)
	if inst.Notes != "" {
		lines = append(lines, "", "Opmerkingen:", inst.Notes)
	}
	return s.render(ctx, "rapport-"+inst.LookupCode+".pdf", lines)
}

// documentJSON is the pdfcpu create-form description for a single text page.
type documentJSON struct {
	Origin string              `json:"origin"`
	Pages  map[string]pageJSON `json:"pages"`
}

type pageJSON struct {
	Content contentJSON `json:"content"`
}

type contentJSON struct {
	Text []textJSON `json:"text"`
}

type textJSON struct {
	Value    string    `json:"value"`
	Position []float64 `json:"position"`
	Font     fontJSON  `json:"font"`
}

type fontJSON struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
}

func (s *Service) render(ctx context.Context, filename string, lines []string) (_ string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	jobDir := filepath.Join(s.workDir, uuid.NewString())
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(jobDir)
	}()

	doc := documentJSON{
		Origin: "upperLeft",
		Pages:  map[string]pageJSON{"1": {Content: contentJSON{Text: buildText(lines)}}},
	}
	jsonPath := filepath.Join(jobDir, "form.json")
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(jsonPath, payload, 0o644); err != nil {
		return "", fmt.Errorf("failed to write form: %w", err)
	}

	workPath := filepath.Join(jobDir, filename)
	if err := pdfapi.CreateFile("", jsonPath, workPath, nil); err != nil {
		return "", fmt.Errorf("pdf render failed: %w", err)
	}
	if err := pdfapi.ValidateFile(workPath, nil); err != nil {
		return "", fmt.Errorf("rendered pdf is invalid: %w", err)
	}

	outPath := filepath.Join(s.outDir, filename)
	if err := os.Rename(workPath, outPath); err != nil {
		// Rename fails across filesystems; fall back to copy.
		data, readErr := os.ReadFile(workPath)
		if readErr != nil {
			return "", fmt.Errorf("failed to move pdf: %w", err)
		}
		if writeErr := os.WriteFile(outPath, data, 0o644); writeErr != nil {
			return "", fmt.Errorf("failed to move pdf: %w", writeErr)
		}
	}
	return outPath, nil
}

func buildText(lines []string) []textJSON {
	const (
		left    = 56.0
		top     = 64.0
		leading = 16.0
	)
	out := make([]textJSON, 0, len(lines))
	y := top
	for i, line := range lines {
		if line != "" {
			size := 11.0
			font := "Courier"
			if i == 0 {
				size = 18.0
				font = "Helvetica-Bold"
			}
			out = append(out, textJSON{
				Value:    line,
				Position: []float64{left, y},
				Font:     fontJSON{Name: font, Size: size},
			})
		}
		y += leading
	}
	return out
}

// formatEuro renders cents as a Dutch euro amount like "€ 4.833,45".
func formatEuro(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return fmt.Sprintf("€ %s%s,%02d", sign, b.String(), frac)
}
