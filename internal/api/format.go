package api

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	MessageEligible    = "Applicant is ELIGIBLE for EMI"
	MessageNotEligible = "Applicant is NOT ELIGIBLE for EMI"
	NoteEMISkipped     = "EMI amount prediction is skipped."
)

var displayPrinter = message.NewPrinter(language.English)

// FormatRupees renders an amount with thousands grouping, e.g. "₹ 18,235".
func FormatRupees(amount int64) string {
	return displayPrinter.Sprintf("₹ %d", amount)
}
