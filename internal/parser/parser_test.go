package parser

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/percept-ai/percept-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPersonas() []domain.Persona {
	return []domain.Persona{
		{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Name: "Budget Shopper"},
		{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Name: "Power User"},
	}
}

func issueCodes(issues []Issue) []IssueCode {
	codes := make([]IssueCode, 0, len(issues))
	for _, issue := range issues {
		codes = append(codes, issue.Code)
	}
	return codes
}

func TestParseArrayRoot(t *testing.T) {
	personas := testPersonas()
	p := New(personas)

	raw := fmt.Sprintf(`[
		{"text": "What is the cheapest option?", "persona_id": "%s", "category": "pricing"},
		{"text": "Does it support plugins?", "persona_id": "%s"}
	]`, personas[0].ID, personas[1].ID)

	records, issues := p.Parse(raw)
	require.Len(t, records, 2)
	assert.Empty(t, issues)

	assert.Equal(t, "What is the cheapest option?", records[0].Text)
	assert.Equal(t, personas[0].ID, records[0].PersonaID)
	assert.Equal(t, "pricing", records[0].Category)
	assert.Equal(t, personas[1].ID, records[1].PersonaID)

	// IDs are assigned locally, never taken from the model.
	assert.NotEqual(t, uuid.Nil, records[0].ID)
	assert.NotEqual(t, records[0].ID, records[1].ID)
}

func TestParseObjectWrappedWithBoilerplate(t *testing.T) {
	personas := testPersonas()
	p := New(personas)

	raw := "Here are the questions you asked for:\n```json\n" +
		fmt.Sprintf(`{"questions": [{"text": "Is there a free tier?", "persona_id": "%s"}]}`, personas[0].ID) +
		"\n```"

	records, issues := p.Parse(raw)
	require.Len(t, records, 1)
	assert.Empty(t, issues)
	assert.Equal(t, "Is there a free tier?", records[0].Text)
}

func TestParseIsIdempotent(t *testing.T) {
	p := New(testPersonas())
	raw := `[{"text": "Q1"}, {"text": "Q2"}, "junk", {"text": ""}]`

	first, firstIssues := p.Parse(raw)
	second, secondIssues := p.Parse(raw)

	require.Len(t, first, len(second))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].PersonaID, second[i].PersonaID)
	}
	assert.Equal(t, issueCodes(firstIssues), issueCodes(secondIssues))
}

func TestParseTruncatedArray(t *testing.T) {
	// No personas: the scenario exercises truncation repair alone.
	p := New(nil)

	raw := "Here it is:\n[{\"id\":\"p1\",\"text\":\"Q1\"},{\"id\":\"p1\",\"text\":\"Q2\""

	records, issues := p.Parse(raw)
	require.Len(t, records, 1)
	assert.Equal(t, "Q1", records[0].Text)

	require.Len(t, issues, 1)
	assert.Equal(t, IssueTruncationRepaired, issues[0].Code)
}

func TestParseTruncatedArrayDropsOnlyChoppedTail(t *testing.T) {
	p := New(nil)

	// Five well-formed records with the last two chopped mid-object.
	full := `[{"text":"A"},{"text":"B"},{"text":"C"},{"text":"D"},{"text":"E"}]`
	truncated := full[:len(full)-len(`,{"text":"E"}]`)-8] // cut inside record D

	records, issues := p.Parse(truncated)
	require.Len(t, records, 3)
	assert.Equal(t, "A", records[0].Text)
	assert.Equal(t, "B", records[1].Text)
	assert.Equal(t, "C", records[2].Text)
	assert.Contains(t, issueCodes(issues), IssueTruncationRepaired)
}

func TestParseTruncatedObjectWrapped(t *testing.T) {
	p := New(nil)

	raw := `{"questions": [{"text":"A"},{"text":"B"},{"text":"C`

	records, issues := p.Parse(raw)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].Text)
	assert.Equal(t, "B", records[1].Text)
	assert.Contains(t, issueCodes(issues), IssueTruncationRepaired)
}

func TestParsePersonaNameFallbackNeverDrops(t *testing.T) {
	personas := testPersonas()
	p := New(personas)

	raw := `[{"text": "Q", "persona_id": "budget shopper"}]`

	records, issues := p.Parse(raw)
	require.Len(t, records, 1)
	assert.Equal(t, personas[0].ID, records[0].PersonaID)
	assert.Empty(t, issues)
}

func TestParseUnknownPersonaSubstitutesDefault(t *testing.T) {
	personas := testPersonas()
	p := New(personas)

	raw := fmt.Sprintf(`[{"text": "Q", "persona_id": "%s"}]`, uuid.New())

	records, issues := p.Parse(raw)
	require.Len(t, records, 1)
	// Kept with the default persona rather than dropped.
	assert.Equal(t, personas[0].ID, records[0].PersonaID)
	assert.Equal(t, []IssueCode{IssuePersonaSubstituted}, issueCodes(issues))
}

func TestParseDropsMalformedElements(t *testing.T) {
	p := New(testPersonas())

	raw := `[{"text": "keep me"}, "not an object", {"text": "   "}, {"other": "no text field"}]`

	records, issues := p.Parse(raw)
	require.Len(t, records, 1)
	assert.Equal(t, "keep me", records[0].Text)

	dropped := 0
	for _, issue := range issues {
		if issue.Code == IssueElementDropped {
			dropped++
		}
	}
	assert.Equal(t, 3, dropped)
}

func TestParseBracketsInsideStrings(t *testing.T) {
	p := New(nil)

	raw := `[{"text": "tricky ] and } inside"}]`

	records, issues := p.Parse(raw)
	require.Len(t, records, 1)
	assert.Empty(t, issues)
	assert.Equal(t, "tricky ] and } inside", records[0].Text)
}

func TestParseNoPayload(t *testing.T) {
	p := New(testPersonas())

	records, issues := p.Parse("I cannot help with that request.")
	assert.Empty(t, records)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueNoPayload, issues[0].Code)
}

func TestParseFallsBackToFragments(t *testing.T) {
	p := New(nil)

	raw := `The model rambled here {"text": "first question", "category": "pricing"} and then
some more prose {"text": "second question"} followed by {broken`

	records, issues := p.Parse(raw)
	require.Len(t, records, 2)
	assert.Equal(t, "first question", records[0].Text)
	assert.Equal(t, "pricing", records[0].Category)
	assert.Equal(t, "second question", records[1].Text)
	assert.Contains(t, issueCodes(issues), IssueFragmentRecovery)
}

func TestParseObjectMissingArrayFieldRecoversFragments(t *testing.T) {
	p := New(nil)

	raw := `{"summary": "no array here", "text": "still a fragment"}`

	records, issues := p.Parse(raw)
	codes := issueCodes(issues)
	assert.Contains(t, codes, IssueMissingArrayField)
	assert.Contains(t, codes, IssueFragmentRecovery)
	require.Len(t, records, 1)
	assert.Equal(t, "still a fragment", records[0].Text)
}

func TestParseFragmentRecoveryCanYieldZero(t *testing.T) {
	p := New(nil)

	records, issues := p.Parse(`{"nothing": {useful here`)
	assert.Empty(t, records)
	assert.Contains(t, issueCodes(issues), IssueFragmentRecovery)
}

func TestParseCollectsAttributes(t *testing.T) {
	p := New(nil)

	raw := `[{"text": "Q", "sentiment": "positive", "rank": 2, "cited": true}]`

	records, _ := p.Parse(raw)
	require.Len(t, records, 1)
	assert.Equal(t, "positive", records[0].Attributes["sentiment"])
	assert.Equal(t, "2", records[0].Attributes["rank"])
	assert.Equal(t, "true", records[0].Attributes["cited"])
}

func TestStripBoilerplate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"code fence", "```json\n[1]\n```", "[1]"},
		{"bare fence", "```\n[1]\n```", "[1]"},
		{"prose prefix", "Here are the results:\n[1]", "[1]"},
		{"clean passthrough", "[1]", "[1]"},
		{"whitespace", "  \n[1]\n  ", "[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripBoilerplate(tt.in))
		})
	}
}
