package trip

import (
	"bytes"
	"fmt"
	"strings"

	"backend-travelbuddy/internal/model"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// ShareQR encodes link as a PNG QR code.
func ShareQR(link string) ([]byte, error) {
	return qrcode.Encode(link, qrcode.Medium, qrSize)
}

// ItineraryPDF renders a one page trip sheet with a QR code pointing at link.
func ItineraryPDF(t model.Trip, link string) ([]byte, error) {
	qr, err := ShareQR(link)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Trip to "+t.Location), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, tr("Trip to "+t.Location))
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Dates: %s to %s (%d days)",
		t.StartDate.Format(model.DateLayout), t.EndDate.Format(model.DateLayout), t.DurationDays()))
	pdf.Ln(8)
	if len(t.Interests) > 0 {
		names := make([]string, 0, len(t.Interests))
		for _, in := range t.Interests {
			names = append(names, in.Name)
		}
		pdf.Cell(0, 8, tr("Interests: "+strings.Join(names, ", ")))
		pdf.Ln(8)
	}
	pdf.Ln(4)
	if t.Description != "" {
		pdf.MultiCell(120, 6, tr(t.Description), "", "L", false)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("share-qr", opts, bytes.NewReader(qr))
	pdf.ImageOptions("share-qr", 150, 30, 45, 45, false, opts, 0, link)
	pdf.SetFont("Arial", "", 8)
	pdf.SetXY(140, 77)
	pdf.CellFormat(65, 5, tr(link), "", 0, "C", false, 0, link)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
