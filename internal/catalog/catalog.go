// Package catalog defines the fixed set of daily DMARC metrics fields and,
// for each one, the record filter that selects which report records it counts.
package catalog

// Column names of the reportRecords table that filters may reference.
const (
	ColDisposition   = "disposition"
	ColSPFResult     = "spfResult"
	ColDKIMResult    = "dkimResult"
	ColSPFAlignment  = "spfAlignment"
	ColDKIMAlignment = "dkimAlignment"
)

// Op is a comparison operator usable in a filter condition.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "<>"
)

// Cond compares one reportRecords column against a literal value. All
// values are fixed in this package; nothing here is built from input.
type Cond struct {
	Column string
	Op     Op
	Value  string
}

// Field is one daily metric: a column in the metrics table and a gauge on
// the exporter. Filter conditions are ANDed together; an empty Filter
// counts every record in the date window, which only num_total uses.
type Field struct {
	Name   string
	Help   string
	Filter []Cond
}

// HasFilter reports whether the field narrows the base count.
func (f Field) HasFilter() bool { return len(f.Filter) > 0 }

// Fields returns the catalog in generation order. The order fixes the
// column list of the compiled aggregation statement and the layout of its
// positional parameters, so it must stay stable for a process lifetime.
func Fields() []Field { return fields }

var fields = []Field{
	{
		Name: "num_total",
		Help: "Total message count across all DMARC report records for the day.",
	},
	{
		Name:   "num_rejected",
		Help:   "Messages the receiving policy rejected.",
		Filter: []Cond{{ColDisposition, OpEq, "reject"}},
	},
	{
		Name:   "num_quarantined",
		Help:   "Messages the receiving policy quarantined.",
		Filter: []Cond{{ColDisposition, OpEq, "quarantine"}},
	},
	{
		Name: "num_align_failed",
		Help: "Messages where both SPF and DKIM alignment failed.",
		Filter: []Cond{
			{ColSPFAlignment, OpEq, "fail"},
			{ColDKIMAlignment, OpEq, "fail"},
		},
	},
	{
		Name: "num_dkim_failed",
		Help: "Messages where DKIM failed but SPF did not.",
		Filter: []Cond{
			{ColDKIMResult, OpEq, "fail"},
			{ColSPFResult, OpNe, "fail"},
		},
	},
	{
		Name: "num_spf_failed",
		Help: "Messages where SPF failed but DKIM did not.",
		Filter: []Cond{
			{ColSPFResult, OpEq, "fail"},
			{ColDKIMResult, OpNe, "fail"},
		},
	},
	{
		Name: "num_spf_dkim_failed",
		Help: "Messages where both SPF and DKIM failed.",
		Filter: []Cond{
			{ColSPFResult, OpEq, "fail"},
			{ColDKIMResult, OpEq, "fail"},
		},
	},
	{
		Name:   "num_dkim_permerror",
		Help:   "Messages with a permanent DKIM evaluation error.",
		Filter: []Cond{{ColDKIMResult, OpEq, "permerror"}},
	},
	{
		Name:   "num_spf_permerror",
		Help:   "Messages with a permanent SPF evaluation error.",
		Filter: []Cond{{ColSPFResult, OpEq, "permerror"}},
	},
}
