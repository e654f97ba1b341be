// Package grouping collapses a period's transactions into display buckets:
// tax and fee lines roll up into one synthetic entry, and named-plan
// purchases (Plan Zeta style) consolidate into synthetic installment entries.
// Originals are preserved as owned children for audit.
package grouping

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/cardcycle/internal/classify"
	"github.com/dvloznov/cardcycle/internal/dates"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/rules"
)

// TaxRollupDetail labels the synthetic tax/fee aggregate.
const TaxRollupDetail = "Gastos de Tarjeta / Impuestos"

// Group builds the display view of one period's transactions.
//
// Tax lines (typed TAX_FEE or matching the tax keyword table) are pulled into
// a single rollup. For each plan rule, transactions of a matching bank whose
// raw plan column names the plan are grouped by the calendar month of their
// purchase date; each month collapses into one synthetic installment entry of
// amount sum/length. Items that merely mention the plan in their detail pass
// through unmodified. The grouped list is sorted by date ascending.
func Group(txs []domain.Transaction, periodKey string, kw classify.Keywords, planRules []rules.PlanRule) domain.ProcessedResult {
	grouped := make([]domain.Transaction, 0, len(txs))
	var taxItems []domain.Transaction
	planGroups := make(map[string][]domain.Transaction)
	planRuleFor := make(map[string]rules.PlanRule)

	for _, t := range txs {
		if kw.IsTax(t) {
			taxItems = append(taxItems, t)
			continue
		}
		if rule, month, ok := planMonth(t, planRules); ok {
			key := rule.Keyword + "|" + month.Key()
			planGroups[key] = append(planGroups[key], t)
			planRuleFor[key] = rule
			continue
		}
		grouped = append(grouped, t)
	}

	for key, group := range planGroups {
		grouped = append(grouped, consolidatePlan(group, planRuleFor[key]))
	}

	if len(taxItems) > 0 {
		grouped = append(grouped, domain.Transaction{
			ID:       uuid.NewString(),
			Kind:     domain.KindTaxRollup,
			Date:     periodKey + "-01",
			Detail:   TaxRollupDetail,
			Amount:   sumAmounts(taxItems),
			Type:     domain.TypeTaxFee,
			Children: taxItems,
		})
	}

	sort.SliceStable(grouped, func(i, j int) bool {
		return grouped[i].Date < grouped[j].Date
	})

	return domain.ProcessedResult{
		RawTransactions:     txs,
		GroupedTransactions: grouped,
		Summary: domain.Summary{
			Total:             sumAmounts(grouped),
			TotalUSD:          decimal.Zero,
			TotalInstallments: sumInstallments(grouped),
			TotalTaxes:        sumAmounts(taxItems),
		},
	}
}

// planMonth matches t against the plan rules. Only the raw plan column
// counts here: a detail that happens to mention the plan name does not make
// the purchase part of the plan.
func planMonth(t domain.Transaction, planRules []rules.PlanRule) (rules.PlanRule, dates.Month, bool) {
	for _, r := range planRules {
		if !r.MatchesBank(t.BankName) || !r.MatchesPlan(t.Plan) {
			continue
		}
		d, ok := dates.Parse(t.Date)
		if !ok {
			return rules.PlanRule{}, dates.Month{}, false
		}
		return r, dates.MonthOf(d), true
	}
	return rules.PlanRule{}, dates.Month{}, false
}

// consolidatePlan collapses one month's plan purchases into a single
// synthetic first installment of the plan's fixed-length series.
func consolidatePlan(group []domain.Transaction, rule rules.PlanRule) domain.Transaction {
	d, _ := dates.Parse(group[0].Date)
	month := dates.MonthOf(d)

	detail := rule.Label
	if detail == "" {
		detail = "Plan " + rule.Keyword
	}

	return domain.Transaction{
		ID:                 uuid.NewString(),
		Kind:               domain.KindPlanRollup,
		Date:               month.FirstDay(),
		Detail:             detail,
		Amount:             sumAmounts(group).Div(decimal.NewFromInt(int64(rule.Installments))),
		Type:               domain.TypeInstallment,
		IsInstallment:      true,
		InstallmentCurrent: 1,
		InstallmentTotal:   rule.Installments,
		BankName:           group[0].BankName,
		TargetPeriod:       group[0].TargetPeriod,
		Children:           group,
	}
}

func sumAmounts(txs []domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}

func sumInstallments(txs []domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		if t.IsInstallment {
			total = total.Add(t.Amount)
		}
	}
	return total
}
