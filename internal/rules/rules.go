// Package rules post-processes extracted transactions with bank-specific
// knowledge: parsing the raw CUOTA/PLAN column into installment positions and
// forcing the fixed-length named plans some issuers bill as (e.g. Naranja X's
// Plan Zeta, a flat three-installment series).
package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// PlanRule describes one issuer's named installment plan.
type PlanRule struct {
	// BankMatch are uppercase substrings of the bank's display name.
	BankMatch []string `yaml:"bank_match"`
	// Keyword identifies the plan in the raw plan column or the detail.
	Keyword string `yaml:"keyword"`
	// Installments is the plan's fixed contractual length.
	Installments int `yaml:"installments"`
	// Label names the synthetic entry produced by plan consolidation.
	Label string `yaml:"label"`
}

// MatchesBank reports whether the rule applies to the given bank.
func (r PlanRule) MatchesBank(bankName string) bool {
	up := strings.ToUpper(bankName)
	for _, m := range r.BankMatch {
		if strings.Contains(up, strings.ToUpper(m)) {
			return true
		}
	}
	return false
}

// MatchesPlan reports whether the raw plan column text names this plan.
func (r PlanRule) MatchesPlan(rawPlan string) bool {
	return r.Keyword != "" && strings.Contains(strings.ToUpper(rawPlan), strings.ToUpper(r.Keyword))
}

// DefaultRules returns the built-in plan rules.
func DefaultRules() []PlanRule {
	return []PlanRule{
		{
			BankMatch:    []string{"NARANJA"},
			Keyword:      "ZETA",
			Installments: 3,
			Label:        "Plan Zeta (consolidado)",
		},
	}
}

var planPattern = regexp.MustCompile(`^\s*(\d+)\s*/\s*(\d+)\s*$`)

// Apply transforms an extracted transaction with bank-specific rules.
// It is pure: the input transaction is not mutated.
//
// A named-plan match (keyword in the raw plan column or the detail, for a
// matching bank) forces the plan's fixed installment count and annotates the
// detail, overriding whatever the generic N/M rule would produce. Otherwise
// a raw plan of the shape "N/M" sets the installment position directly.
func Apply(tx domain.Transaction, bankName, rawPlan string, planRules []PlanRule) domain.Transaction {
	for _, r := range planRules {
		if !r.MatchesBank(bankName) {
			continue
		}
		detailUp := strings.ToUpper(tx.Detail)
		if r.MatchesPlan(rawPlan) || strings.Contains(detailUp, strings.ToUpper(r.Keyword)) {
			if !strings.Contains(detailUp, strings.ToUpper(r.Keyword)) {
				tx.Detail = fmt.Sprintf("%s (%s)", tx.Detail, r.Keyword)
			}
			tx.Type = domain.TypeInstallment
			tx.IsInstallment = true
			if tx.InstallmentCurrent < 1 {
				tx.InstallmentCurrent = 1
			}
			tx.InstallmentTotal = r.Installments
			return tx
		}
	}

	if m := planPattern.FindStringSubmatch(rawPlan); m != nil {
		current, err1 := strconv.Atoi(m[1])
		total, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			tx.InstallmentCurrent = current
			tx.InstallmentTotal = total
			tx.IsInstallment = total > 1
			if total > 1 {
				tx.Type = domain.TypeInstallment
			} else {
				tx.Type = domain.TypePurchase
			}
		}
	}

	if !tx.Type.Valid() {
		if tx.IsInstallment {
			tx.Type = domain.TypeInstallment
		} else {
			tx.Type = domain.TypePurchase
		}
	}

	return tx
}
