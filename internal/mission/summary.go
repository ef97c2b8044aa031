package mission

import (
	"math"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

// ProductionSummary renders the produced and consumed ledgers.
func (e *Engine) ProductionSummary() string {
	rec := e.Record()
	var b strings.Builder
	writeLedger(&b, "MATERIALS PRODUCED", rec.Produced)
	writeLedger(&b, "MATERIALS CONSUMED", rec.Consumed)
	return b.String()
}

func writeLedger(b *strings.Builder, title string, ledger map[string]float64) {
	b.WriteString(title)
	b.WriteByte('\n')
	if len(ledger) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	keys := make([]string, 0, len(ledger))
	for k := range ledger {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.WriteString("  ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(humanize.Commaf(math.Round(ledger[k]*1000) / 1000))
		b.WriteByte('\n')
	}
}
