package starpay

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	enc "github.com/utapedia/backend/internal/encoding"
	"github.com/utapedia/backend/internal/money"
	"github.com/utapedia/backend/internal/revenue"
)

// Parser reads Starpay settlement report CSV exports and produces revenue
// and fee lines. It auto-detects which report format (売上明細, 入出金明細)
// is being used by matching column headers against known profiles.
// Starpay reports amounts in yen; files arrive Shift_JIS or UTF-8 encoded.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]revenue.Line, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	profile, colMap, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, fmt.Errorf("no matching Starpay format found: expected columns for 売上明細 or 入出金明細")
	}

	return parseRows(profile, colMap, rows[headerIdx+1:])
}

// colIndex maps column names to their index in the row.
type colIndex map[string]int

// detectProfile scans rows for a header that matches a known profile.
// Returns the matched profile, column index map, and header row index.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.TrimSpace(cell)
			if name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

// matchesProfile checks if all required columns of a profile are present.
func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows extracts revenue and fee lines from data rows using the
// matched profile. Rows without a parseable date (preamble leftovers,
// footers, page markers) are skipped.
func parseRows(p *Profile, cols colIndex, rows [][]string) ([]revenue.Line, error) {
	dateIdx := cols[p.DateCol]
	descIdx := cols[p.DescCol]

	var lines []revenue.Line

	for _, row := range rows {
		date, ok := parseDate(row, dateIdx)
		if !ok {
			continue
		}

		desc := cellValue(row, descIdx)

		switch p.AmountMode {
		case amountSplit:
			rev, ok := parseAmount(cellValue(row, cols[p.RevenueCol]))
			if ok && rev != 0 {
				lines = append(lines, revenue.Line{
					Date:        date,
					Description: desc,
					Kind:        revenue.KindRevenue,
					Amount:      money.New(rev, money.JPY),
				})
			}

			fee, ok := parseAmount(cellValue(row, cols[p.FeeCol]))
			if ok && fee != 0 {
				lines = append(lines, revenue.Line{
					Date:        date,
					Description: desc,
					Kind:        revenue.KindFee,
					Amount:      money.New(fee, money.JPY),
				})
			}

		case amountSigned:
			amount, ok := parseAmount(cellValue(row, cols[p.AmountCol]))
			if !ok || amount == 0 {
				continue
			}

			kind := revenue.KindRevenue
			if amount < 0 {
				// Negative entries are gateway deductions; record the
				// absolute value as a fee.
				kind = revenue.KindFee
				amount = -amount
			}

			lines = append(lines, revenue.Line{
				Date:        date,
				Description: desc,
				Kind:        kind,
				Amount:      money.New(amount, money.JPY),
			})
		}
	}

	return lines, nil
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func parseDate(row []string, idx int) (time.Time, bool) {
	s := cellValue(row, idx)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{"2006/01/02", "2006-01-02"} {
		if date, err := time.Parse(layout, s); err == nil {
			return date, true
		}
	}

	return time.Time{}, false
}

// parseAmount reads a yen amount like "8,500" or "¥12,000" or "-700".
func parseAmount(s string) (int64, bool) {
	clean := strings.ReplaceAll(s, ",", "")
	clean = strings.TrimPrefix(clean, "¥")
	clean = strings.TrimSpace(clean)

	if clean == "" {
		return 0, false
	}

	val, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0, false
	}

	return val, true
}
