package starpay

// amountMode determines how amounts are extracted from a row.
type amountMode int

const (
	// amountSplit means separate revenue and fee columns ("売上金額"/"手数料").
	amountSplit amountMode = iota
	// amountSigned means one signed column ("金額") where fees are negative.
	amountSigned
)

// Profile describes the column layout of a Starpay report format.
// Adding a new format is just adding a new Profile to the profiles slice.
type Profile struct {
	Name       string
	DateCol    string
	DescCol    string
	AmountMode amountMode
	RevenueCol string // used when AmountMode == amountSplit
	FeeCol     string // used when AmountMode == amountSplit
	AmountCol  string // used when AmountMode == amountSigned
}

// requiredCols returns the column names that must be present for this profile to match.
func (p Profile) requiredCols() []string {
	cols := []string{p.DateCol, p.DescCol}

	switch p.AmountMode {
	case amountSplit:
		cols = append(cols, p.RevenueCol, p.FeeCol)
	case amountSigned:
		cols = append(cols, p.AmountCol)
	}

	return cols
}

// profiles is the ordered list of Starpay report formats to try during
// auto-detection. More specific profiles come first to avoid false matches.
var profiles = []Profile{
	{
		Name:       "売上明細",
		DateCol:    "日付",
		DescCol:    "摘要",
		AmountMode: amountSplit,
		RevenueCol: "売上金額",
		FeeCol:     "手数料",
	},
	{
		Name:       "入出金明細",
		DateCol:    "日付",
		DescCol:    "摘要",
		AmountMode: amountSigned,
		AmountCol:  "金額",
	},
}
