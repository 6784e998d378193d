package agent

import (
	"regexp"

	"nexo_bot/internal/sheets"
)

type PaidStatus int

const (
	PaidUnknown PaidStatus = iota
	PaidYes
	PaidNo
)

func (s PaidStatus) String() string {
	switch s {
	case PaidYes:
		return "paid"
	case PaidNo:
		return "unpaid"
	default:
		return "unknown"
	}
}

// Patterns run on accent-folded, lower-cased text.
var (
	unpaidKeywords = regexp.MustCompile(`\b(no pago|no abono|no me pago|a cuenta|cuenta corriente|fiado|fiada|debe|debiendo|paga despues|pagara despues|me paga el)\b`)
	paidKeywords   = regexp.MustCompile(`\b(pago|pagado|pagada|pagaron|abono|efectivo|tarjeta|transferencia|mercado ?pago|cobre|cobrado)\b`)
)

// PaidStatusFromMessage looks for explicit payment wording in what the user
// typed. Unpaid wording is removed before looking for paid wording so that
// "no pagó" is not read as "pagó"; finding both kinds is ambiguous.
func PaidStatusFromMessage(message string) PaidStatus {
	text := sheets.Normalize(message)
	unpaid := unpaidKeywords.MatchString(text)
	rest := unpaidKeywords.ReplaceAllString(text, " ")
	paid := paidKeywords.MatchString(rest)
	switch {
	case unpaid && paid:
		return PaidUnknown
	case unpaid:
		return PaidNo
	case paid:
		return PaidYes
	default:
		return PaidUnknown
	}
}
