package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/percept-ai/percept-api/internal/domain"
)

// fragmentMatcher recovers record-shaped fragments from severely
// malformed text. It matches one brace-delimited object at a time,
// requiring the object to carry one of the parser's text fields, and is
// independent of overall document validity. Work is linear in the text
// length.
type fragmentMatcher struct {
	re *regexp.Regexp
}

// newFragmentMatcher builds the fragment pattern for the given text
// keys. Record fragments are flat objects, so nested braces are not
// matched.
func newFragmentMatcher(textKeys []string) *fragmentMatcher {
	escaped := make([]string, len(textKeys))
	for i, key := range textKeys {
		escaped[i] = regexp.QuoteMeta(key)
	}

	pattern := fmt.Sprintf(`\{[^{}]*"(?:%s)"\s*:\s*"(?:[^"\\]|\\.)*"[^{}]*\}`,
		strings.Join(escaped, "|"))

	return &fragmentMatcher{re: regexp.MustCompile(pattern)}
}

// extract returns every record-shaped fragment found in raw.
func (m *fragmentMatcher) extract(raw string) []string {
	return m.re.FindAllString(raw, -1)
}

// fallbackToFragments is the best-effort recovery path taken when
// strict parsing is impossible. Every fragment that passes per-record
// validation is kept; zero records is a legitimate outcome that the
// caller decides how to act on.
func (p *Parser) fallbackToFragments(raw string, issues []Issue, reason string) ([]*domain.Record, []Issue) {
	fragments := p.fragmentRe.extract(raw)

	issues = append(issues, Issue{
		Code:   IssueFragmentRecovery,
		Detail: fmt.Sprintf("strict parse failed (%s), recovered %d candidate fragments", reason, len(fragments)),
	})

	elements := make([]any, 0, len(fragments))
	for _, fragment := range fragments {
		var fields map[string]any
		if err := json.Unmarshal([]byte(fragment), &fields); err != nil {
			continue
		}
		elements = append(elements, fields)
	}

	records, recIssues := p.buildRecords(elements)
	return records, append(issues, recIssues...)
}
