package parser

import "fmt"

// IssueCode classifies a soft failure encountered while parsing an LLM
// response. Issues never abort parsing; they record what was repaired,
// dropped, or substituted so callers can log and count them.
type IssueCode string

// Possible issue codes
const (
	// IssueNoPayload means no JSON payload could be located in the text.
	IssueNoPayload IssueCode = "no_payload"

	// IssueTruncationRepaired means the payload appeared cut off
	// mid-record and was rebalanced by dropping the partial tail.
	IssueTruncationRepaired IssueCode = "truncation_repaired"

	// IssueMissingArrayField means an object-wrapped payload parsed as
	// JSON but exposed none of the expected array fields.
	IssueMissingArrayField IssueCode = "missing_array_field"

	// IssueElementDropped means one element of the records array failed
	// validation and was dropped from the result set.
	IssueElementDropped IssueCode = "element_dropped"

	// IssuePersonaSubstituted means a record's persona reference
	// resolved to neither a known ID nor a known name, so the default
	// persona was substituted. The record is kept.
	IssuePersonaSubstituted IssueCode = "persona_substituted"

	// IssueFragmentRecovery means strict parsing failed and records
	// were recovered by per-fragment pattern matching instead.
	IssueFragmentRecovery IssueCode = "fragment_recovery"
)

// Issue describes one soft failure during parsing.
type Issue struct {
	Code   IssueCode `json:"code"`
	Detail string    `json:"detail"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Code, i.Detail)
}
