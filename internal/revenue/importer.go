// Package revenue ingests payment-gateway settlement reports and turns
// them into revenue and fee lines to record into a settlement batch.
package revenue

import (
	"fmt"
	"io"
	"time"

	"github.com/utapedia/backend/internal/money"
)

// Gateway identifies a payment processor whose report format we can parse.
type Gateway string

const (
	GatewayStarpay Gateway = "starpay"
)

// LineKind separates revenue lines from fee/commission lines.
type LineKind string

const (
	KindRevenue LineKind = "revenue"
	KindFee     LineKind = "fee"
)

// Line is one entry of a gateway settlement report.
type Line struct {
	Date        time.Time
	Description string
	Kind        LineKind
	Amount      money.Money
}

type Importer interface {
	Parse(r io.Reader) ([]Line, error)
}

type Service struct {
	starpay Importer
}

func NewService(starpay Importer) *Service {
	return &Service{starpay: starpay}
}

func (s *Service) Import(gateway Gateway, r io.Reader) ([]Line, error) {
	var importer Importer

	switch gateway {
	case GatewayStarpay:
		importer = s.starpay
	default:
		return nil, fmt.Errorf("unknown gateway: %s", gateway)
	}

	return importer.Parse(r)
}
