package http

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"quizmaster-web/internal/domain"
)

const (
	pdfMargin     = 20.0
	pdfTopMargin  = 25.0
	pdfLineHeight = 10.0
)

// resultPDF lays out a one-page certificate of a finished attempt.
func resultPDF(user domain.User, res domain.Result) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfTopMargin, pdfMargin)
	pdf.SetTitle("QuizMaster results", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, "QuizMaster", "", 1, "C", false, 0, "")
	pdf.Ln(pdfLineHeight)

	pdf.SetFont("Helvetica", "", 14)
	name := user.Name
	if name == "" {
		name = user.Email
	}
	if name != "" {
		pdf.CellFormat(0, pdfLineHeight, "Name: "+name, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, pdfLineHeight, "Subject: "+string(res.Subject), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, pdfLineHeight, fmt.Sprintf("Score: %d / %d", res.Score, res.Total), "", 1, "L", false, 0, "")
	pdf.Ln(pdfLineHeight / 2)

	pdf.SetFont("Helvetica", "B", 36)
	pdf.CellFormat(0, 20, fmt.Sprintf("%d%%", res.Percentage()), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
