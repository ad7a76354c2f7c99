package ticket

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"event-booking-backend/internal/model"
)

// QRSize is the edge length in pixels of generated QR codes.
const QRSize = 256

// Payload is the text encoded in a booking's QR code.
func Payload(b model.Booking) string {
	return "booking:" + b.ID
}

// QRCode renders the booking's QR code as PNG.
func QRCode(b model.Booking) ([]byte, error) {
	png, err := qrcode.Encode(Payload(b), qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

// PDF renders a one-page confirmation ticket with the QR code.
func PDF(eventTitle string, b model.Booking) ([]byte, error) {
	pdf, err := document(eventTitle, b)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func document(eventTitle string, b model.Booking) (*gofpdf.Fpdf, error) {
	qrPNG, err := QRCode(b)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(eventTitle+" ticket", true)
	pdf.AddPage()

	// Core fonts are cp1252; user input arrives as UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 15, tr(eventTitle), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, tr(fmt.Sprintf("Name: %s", b.Name)))
	pdf.Ln(8)
	pdf.Cell(0, 10, tr(fmt.Sprintf("Email: %s", b.Email)))
	pdf.Ln(8)
	booked := time.UnixMilli(b.Timestamp).UTC().Format("2006-01-02 15:04 MST")
	pdf.Cell(0, 10, fmt.Sprintf("Booked: %s", booked))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Booking ID: %s", b.ID))
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	pdf.SetY(-30)
	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(0, 10, "Show this ticket at the entrance.", "T", 0, "C", false, 0, "")

	return pdf, pdf.Error()
}
