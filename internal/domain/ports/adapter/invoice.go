package adapter

import "linkbio-billing/internal/domain/model"

type Issuer struct {
	Name    string
	Address string
	Email   string
}

type InvoiceData struct {
	Issuer   Issuer
	Customer *model.User
	Payment  *model.Payment
}

// InvoiceRenderer produces the PDF invoice for a payment.
type InvoiceRenderer interface {
	Render(d InvoiceData) ([]byte, error)
}
