package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// Convocation carries everything a summons sheet needs. The scheduling core
// hands these over after a successful assignment commit; rendering never feeds
// back into booking state.
type Convocation struct {
	EventTitle      string
	EventKind       string
	Date            string
	StartTime       string
	EndTime         string
	RoomName        string
	SeatNumber      int
	ParticipantName string
	ExternalRef     string
	QRPayload       string
}

// ConvocationRenderer produces one-page PDF summons documents.
type ConvocationRenderer struct {
	qrEnabled bool
}

// NewConvocationRenderer constructs a renderer. When qrEnabled is false the QR
// block is omitted and only the textual identity fields are printed.
func NewConvocationRenderer(qrEnabled bool) *ConvocationRenderer {
	return &ConvocationRenderer{qrEnabled: qrEnabled}
}

// Render draws a single convocation page.
func (r *ConvocationRenderer) Render(conv Convocation) ([]byte, error) {
	if conv.EventTitle == "" {
		return nil, fmt.Errorf("convocation requires an event title")
	}
	if conv.SeatNumber < 1 {
		return nil, fmt.Errorf("convocation requires a positive seat number")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "CONVOCATION", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, conv.EventTitle, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(45, 8, "Candidate", "", 0, "", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, conv.ParticipantName, "", 1, "", false, 0, "")

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(45, 8, "Identifier", "", 0, "", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, conv.ExternalRef, "", 1, "", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Date", conv.Date},
		{"Time", fmt.Sprintf("%s - %s", conv.StartTime, conv.EndTime)},
		{"Room", conv.RoomName},
		{"Seat", fmt.Sprintf("%d", conv.SeatNumber)},
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(45, 9, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 9, row[1], "1", 1, "", false, 0, "")
	}

	if r.qrEnabled && conv.QRPayload != "" {
		png, err := qrcode.Encode(conv.QRPayload, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode convocation qr: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		name := fmt.Sprintf("qr-%s-%d", conv.ExternalRef, conv.SeatNumber)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
		pdf.Ln(8)
		pdf.ImageOptions(name, 80, pdf.GetY(), 50, 50, false, opts, 0, "")
		pdf.SetY(pdf.GetY() + 54)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 6, "Present this document and a photo ID at the room entrance.", "", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render convocation: %w", err)
	}
	return buf.Bytes(), nil
}
