// Package cycle assigns transactions to the statement cycle in which they
// will actually be charged. A cycle is identified by its due date's calendar
// month; purchases dated after the closing date roll into the next cycle.
package cycle

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/cardcycle/internal/dates"
	"github.com/dvloznov/cardcycle/internal/domain"
)

// Unknown is the period key for transactions with no usable date at all.
const Unknown = "Unknown"

// Allocate determines the YYYY-MM target period for a transaction dated
// txDate given the statement's closing and due dates. All inputs are
// normalized date strings; empty strings mean "not known".
func Allocate(txDate, closingDate, dueDate string) string {
	return AllocateAt(txDate, closingDate, dueDate, civil.DateOf(time.Now()))
}

// AllocateAt is Allocate with an explicit notion of "today", so allocation is
// deterministic under test. Rules, in order:
//
//   - missing txDate: the current month;
//   - unparseable txDate: degrade to the string's own year-month prefix;
//   - no closing date known: the transaction's own year-month;
//   - txDate on or before the closing date: the due date's year-month
//     (defaulting the due date to the month after closing);
//   - txDate after the closing date: one month later than that.
//
// Comparisons are at day granularity; a purchase dated exactly on the closing
// date belongs to the current cycle.
func AllocateAt(txDate, closingDate, dueDate string, today civil.Date) string {
	if txDate == "" {
		return dates.MonthOf(today).Key()
	}
	tx, ok := dates.Parse(txDate)
	if !ok {
		if len(txDate) >= 7 {
			return txDate[:7]
		}
		return dates.MonthOf(today).Key()
	}

	closing, ok := dates.Parse(closingDate)
	if !ok {
		return dates.MonthOf(tx).Key()
	}

	var dueMonth dates.Month
	if due, ok := dates.Parse(dueDate); ok {
		dueMonth = dates.MonthOf(due)
	} else {
		// Due date unknown: assume the first day of the month after closing.
		dueMonth = dates.MonthOf(closing).Add(1)
	}

	if tx.After(closing) {
		return dueMonth.Add(1).Key()
	}
	return dueMonth.Key()
}

// PostClosing reports whether the transaction date falls strictly after the
// statement's closing date. Unknown dates are never post-closing.
func PostClosing(txDate, closingDate string) bool {
	tx, ok1 := dates.Parse(txDate)
	closing, ok2 := dates.Parse(closingDate)
	return ok1 && ok2 && tx.After(closing)
}

// StatementPeriod normalizes a transaction's period to exactly the YYYY-MM
// prefix, regardless of whether the stored value is a full date or an already
// truncated key. Transactions with no period information map to Unknown.
func StatementPeriod(t domain.Transaction) string {
	raw := t.TargetPeriod
	if raw == "" {
		raw = t.Date
	}
	if raw == "" || raw == Unknown {
		return Unknown
	}
	if len(raw) > 7 {
		return raw[:7]
	}
	return raw
}
