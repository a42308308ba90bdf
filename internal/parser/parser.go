// Package parser turns raw LLM responses into validated domain records.
//
// LLM output is frequently malformed: wrapped in prose or code fences,
// truncated mid-record, or interleaved with commentary. The parser
// recovers as much structured content as it can and reports everything
// it repaired or dropped as soft issues instead of failing. Parsing is
// pure and stateless given the persona list injected at construction;
// re-parsing the same text always yields the same records.
package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/percept-ai/percept-api/internal/domain"
)

// Default key sets recognized in record elements. Workload-specific
// parsers narrow these via options.
var (
	defaultArrayKeys    = []string{"records", "questions", "topics", "mentions", "items"}
	defaultTextKeys     = []string{"text", "question", "content"}
	defaultPersonaKeys  = []string{"persona_id", "persona"}
	defaultCategoryKeys = []string{"category", "type"}
)

// Parser extracts domain records from one raw LLM text response.
type Parser struct {
	personas     []domain.Persona
	byID         map[uuid.UUID]domain.Persona
	byName       map[string]domain.Persona
	arrayKeys    []string
	textKeys     []string
	personaKeys  []string
	categoryKeys []string
	fragmentRe   *fragmentMatcher
}

// Option customizes a Parser.
type Option func(*Parser)

// WithArrayKeys overrides the field names probed for the records array
// in object-wrapped payloads.
func WithArrayKeys(keys ...string) Option {
	return func(p *Parser) { p.arrayKeys = keys }
}

// WithTextKeys overrides the field names accepted as a record's
// required text content.
func WithTextKeys(keys ...string) Option {
	return func(p *Parser) { p.textKeys = keys }
}

// WithCategoryKeys overrides the field names accepted as a record's
// category tag.
func WithCategoryKeys(keys ...string) Option {
	return func(p *Parser) { p.categoryKeys = keys }
}

// New creates a Parser that resolves record back-references against the
// given persona list. The personas are injected rather than read from
// shared state so the parser stays pure.
func New(personas []domain.Persona, opts ...Option) *Parser {
	p := &Parser{
		personas:     personas,
		byID:         make(map[uuid.UUID]domain.Persona, len(personas)),
		byName:       make(map[string]domain.Persona, len(personas)),
		arrayKeys:    defaultArrayKeys,
		textKeys:     defaultTextKeys,
		personaKeys:  defaultPersonaKeys,
		categoryKeys: defaultCategoryKeys,
	}

	for _, persona := range personas {
		p.byID[persona.ID] = persona
		p.byName[normalizeName(persona.Name)] = persona
	}

	for _, opt := range opts {
		opt(p)
	}

	p.fragmentRe = newFragmentMatcher(p.textKeys)

	return p
}

// Parse extracts records from raw text. It never returns an error: the
// failure shape is an empty record slice plus issues describing what
// went wrong. Records always carry freshly generated IDs; IDs supplied
// by the model are never trusted.
func (p *Parser) Parse(raw string) ([]*domain.Record, []Issue) {
	var issues []Issue

	stripped := stripBoilerplate(raw)

	shape, start, end := locatePayload(stripped)
	if shape == shapeNone {
		issues = append(issues, Issue{Code: IssueNoPayload, Detail: "no JSON bracket found in response"})
		return nil, issues
	}

	var payload string
	if end < 0 {
		// Text appears cut off mid-record; drop the partial tail and
		// rebalance.
		repaired, ok := repairTruncation(stripped[start:], shape)
		if !ok {
			return p.fallbackToFragments(raw, issues, "payload truncated before any complete record")
		}
		payload = repaired
		issues = append(issues, Issue{
			Code:   IssueTruncationRepaired,
			Detail: "response truncated mid-record, dropped partial tail",
		})
	} else {
		payload = stripped[start:end]
	}

	elements, elemIssues, err := p.decodeElements(payload, shape)
	issues = append(issues, elemIssues...)
	if err != nil {
		return p.fallbackToFragments(raw, issues, err.Error())
	}

	records, recIssues := p.buildRecords(elements)
	issues = append(issues, recIssues...)

	return records, issues
}

// decodeElements parses the payload substring and returns the raw
// record elements. Object-wrapped payloads must expose one of the
// configured array fields.
func (p *Parser) decodeElements(payload string, shape payloadShape) ([]any, []Issue, error) {
	switch shape {
	case shapeArray:
		var elements []any
		if err := json.Unmarshal([]byte(payload), &elements); err != nil {
			return nil, nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		return elements, nil, nil

	case shapeObject:
		var wrapper map[string]any
		if err := json.Unmarshal([]byte(payload), &wrapper); err != nil {
			return nil, nil, fmt.Errorf("invalid JSON object: %w", err)
		}

		for _, key := range p.arrayKeys {
			if value, ok := wrapper[key]; ok {
				if elements, ok := value.([]any); ok {
					return elements, nil, nil
				}
			}
		}

		issue := Issue{
			Code:   IssueMissingArrayField,
			Detail: fmt.Sprintf("object payload has none of the expected array fields %v", p.arrayKeys),
		}
		return nil, []Issue{issue}, fmt.Errorf("missing records array field")

	default:
		return nil, nil, fmt.Errorf("no payload shape detected")
	}
}

// buildRecords validates each element and constructs domain records.
// Malformed elements are dropped with an issue; a mismatched persona
// back-reference is never grounds for dropping a record.
func (p *Parser) buildRecords(elements []any) ([]*domain.Record, []Issue) {
	var issues []Issue
	records := make([]*domain.Record, 0, len(elements))

	for i, element := range elements {
		fields, ok := element.(map[string]any)
		if !ok {
			issues = append(issues, Issue{
				Code:   IssueElementDropped,
				Detail: fmt.Sprintf("element %d is not an object", i),
			})
			continue
		}

		text := p.lookupString(fields, p.textKeys)
		if strings.TrimSpace(text) == "" {
			issues = append(issues, Issue{
				Code:   IssueElementDropped,
				Detail: fmt.Sprintf("element %d missing required text field", i),
			})
			continue
		}

		personaID, substituted := p.resolvePersona(fields)
		if substituted != "" {
			issues = append(issues, Issue{
				Code:   IssuePersonaSubstituted,
				Detail: fmt.Sprintf("element %d: %s", i, substituted),
			})
		}

		category := p.lookupString(fields, p.categoryKeys)
		attributes := p.collectAttributes(fields)

		record, err := domain.NewRecord(strings.TrimSpace(text), personaID, category, attributes)
		if err != nil {
			issues = append(issues, Issue{
				Code:   IssueElementDropped,
				Detail: fmt.Sprintf("element %d failed validation: %v", i, err),
			})
			continue
		}

		records = append(records, record)
	}

	return records, issues
}

// resolvePersona maps an element's persona reference to a known
// persona. Resolution order: known ID, then name lookup, then the
// default (first) persona with a substitution note. Dropping generated
// content over an id/name confusion would be worse than
// mis-attributing it, so the record is always kept.
func (p *Parser) resolvePersona(fields map[string]any) (uuid.UUID, string) {
	ref := p.lookupString(fields, p.personaKeys)
	if ref != "" {
		if id, err := uuid.Parse(strings.TrimSpace(ref)); err == nil {
			if _, ok := p.byID[id]; ok {
				return id, ""
			}
		}

		if persona, ok := p.byName[normalizeName(ref)]; ok {
			return persona.ID, ""
		}
	}

	if len(p.personas) == 0 {
		return uuid.Nil, ""
	}

	if ref == "" {
		return p.personas[0].ID, "missing persona reference, used default"
	}
	return p.personas[0].ID, fmt.Sprintf("unknown persona reference %q, used default", ref)
}

// lookupString returns the first non-empty string value found under any
// of the given keys.
func (p *Parser) lookupString(fields map[string]any, keys []string) string {
	for _, key := range keys {
		if value, ok := fields[key]; ok {
			if s, ok := value.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// collectAttributes gathers scalar fields that are not consumed by the
// text, persona, or category keys into the record's attribute map.
func (p *Parser) collectAttributes(fields map[string]any) map[string]string {
	consumed := make(map[string]bool)
	for _, keys := range [][]string{p.textKeys, p.personaKeys, p.categoryKeys, {"id"}} {
		for _, key := range keys {
			consumed[key] = true
		}
	}

	var attributes map[string]string
	for key, value := range fields {
		if consumed[key] {
			continue
		}

		var s string
		switch v := value.(type) {
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(v)
		default:
			continue
		}

		if attributes == nil {
			attributes = make(map[string]string)
		}
		attributes[key] = s
	}

	return attributes
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
