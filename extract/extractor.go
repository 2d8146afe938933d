// Package extract defines the document extraction contract and ships the
// spreadsheet implementation. PDF and image extraction run in an external
// service; only their output contract is known here.
package extract

import (
	"context"
	"time"

	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/mmdatafocus/quoting_backend/workflow"
)

type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Metadata struct {
	DocumentType models.DocumentType `json:"document_type"`
	SupplierName string              `json:"supplier_name,omitempty"`
	QuoteDate    *time.Time          `json:"quote_date,omitempty"`
	Currency     models.CurrencyCode `json:"currency,omitempty"`
}

// Result is the extractor output contract: candidate components plus
// document metadata and an overall confidence.
type Result struct {
	Success    bool                          `json:"success"`
	Components []workflow.CandidateComponent `json:"components"`
	Metadata   Metadata                      `json:"metadata"`
	Confidence float64                       `json:"confidence"`
	Warnings   []Warning                     `json:"warnings,omitempty"`
}

type Extractor interface {
	Parse(ctx context.Context, filename string, data []byte) (*Result, error)
}
