package invoice

import (
	"bytes"
	"fmt"

	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/adapter"

	"github.com/go-pdf/fpdf"
)

var _ adapter.InvoiceRenderer = (*PDFRenderer)(nil)

// PDFRenderer draws a one-page A4 invoice from a payment row. Output depends
// only on its inputs, so a re-download reproduces the emailed document.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{} }

func (r *PDFRenderer) Render(d adapter.InvoiceData) ([]byte, error) {
	p := d.Payment
	if p == nil || p.InvoiceNumber == "" {
		return nil, fmt.Errorf("invoice: payment without invoice number")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetTitle("Invoice "+p.InvoiceNumber, true)
	pdf.SetCreator(d.Issuer.Name, true)
	if p.PaidAt != nil {
		pdf.SetCreationDate(*p.PaidAt)
		pdf.SetModificationDate(*p.PaidAt)
	}
	pdf.AddPage()

	// header
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, d.Issuer.Name, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if d.Issuer.Address != "" {
		pdf.MultiCell(0, 4.5, d.Issuer.Address, "", "L", false)
	}
	if d.Issuer.Email != "" {
		pdf.CellFormat(0, 5, d.Issuer.Email, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "INVOICE", "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, "Invoice no: "+p.InvoiceNumber, "", 1, "R", false, 0, "")
	if p.PaidAt != nil {
		pdf.CellFormat(0, 5, "Date: "+p.PaidAt.UTC().Format("02 Jan 2006"), "", 1, "R", false, 0, "")
	}
	pdf.CellFormat(0, 5, "Payment ref: "+p.PaymentID, "", 1, "R", false, 0, "")
	pdf.Ln(4)

	// bill to
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, "Billed to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if c := d.Customer; c != nil {
		if c.Username != "" {
			pdf.CellFormat(0, 5, c.Username, "", 1, "L", false, 0, "")
		}
		if c.Email != "" {
			pdf.CellFormat(0, 5, c.Email, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(6)

	// line items
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(130, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(50, 8, "Amount", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	row := func(label string, minor int64) {
		pdf.CellFormat(130, 8, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 8, money(minor, p.Currency), "1", 1, "R", false, 0, "")
	}
	row(planLabel(p.Plan), p.BaseAmount)
	if p.Discount > 0 {
		label := "Discount"
		if p.CouponCode != "" {
			label += " (" + p.CouponCode + ")"
		}
		row(label, -p.Discount)
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(130, 8, "Total paid", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, money(p.Amount, p.Currency), "1", 1, "R", false, 0, "")

	if p.Status == model.PaymentStatusRefunded {
		pdf.Ln(4)
		pdf.SetTextColor(200, 0, 0)
		pdf.CellFormat(0, 6, "REFUNDED", "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(0, 4, "This is a computer generated invoice and does not require a signature.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("invoice %s: %w", p.InvoiceNumber, err)
	}
	return buf.Bytes(), nil
}

func planLabel(plan model.Plan) string {
	if plan == model.PlanPro {
		return "Pro plan, 1 month"
	}
	return string(plan) + " plan"
}

// money formats minor units; the core fonts have no rupee glyph so the ISO
// code is used.
func money(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%s %d.%02d", sign, currency, minor/100, minor%100)
}
