package parser

import "strings"

// payloadShape tags how the JSON payload is rooted. The shape is
// resolved once, at bounds detection, rather than re-detected per
// field access.
type payloadShape int

const (
	shapeNone payloadShape = iota
	shapeArray
	shapeObject
)

// stripRules is the fixed ordered list of boilerplate prefixes removed
// from the start of a response before bounds detection. Matching is
// case-insensitive and only applies to the first line.
var stripRules = []string{
	"here are the",
	"here is the",
	"here it is",
	"here's",
	"sure,",
	"certainly",
}

// stripBoilerplate removes markdown code fences and known
// natural-language prefixes from the start and end of the text.
func stripBoilerplate(raw string) string {
	s := strings.TrimSpace(raw)

	// Leading natural-language line, e.g. "Here are the 10 questions:".
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.ToLower(strings.TrimSpace(s[:idx]))
		for _, rule := range stripRules {
			if strings.HasPrefix(first, rule) {
				s = strings.TrimSpace(s[idx+1:])
				break
			}
		}
	}

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(s[len("```json"):])
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(s[len("```"):])
	}

	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(s[:len(s)-len("```")])
	}

	return s
}

// locatePayload finds the JSON payload inside s. Whichever of the first
// '{' or first '[' occurs earlier determines the root shape. It returns
// the shape, the start index, and the index one past the balanced
// close, or end == -1 when the payload never closes (truncated text).
func locatePayload(s string) (payloadShape, int, int) {
	objIdx := strings.IndexByte(s, '{')
	arrIdx := strings.IndexByte(s, '[')

	shape := shapeNone
	start := -1

	switch {
	case objIdx < 0 && arrIdx < 0:
		return shapeNone, -1, -1
	case objIdx < 0:
		shape, start = shapeArray, arrIdx
	case arrIdx < 0:
		shape, start = shapeObject, objIdx
	case arrIdx < objIdx:
		shape, start = shapeArray, arrIdx
	default:
		shape, start = shapeObject, objIdx
	}

	end := scanBalanced(s, start)
	return shape, start, end
}

// scanBalanced walks s from the opening bracket at start and returns
// the index one past the matching close, or -1 if the bracket never
// closes. Brackets inside JSON strings are ignored.
func scanBalanced(s string, start int) int {
	var depthObj, depthArr int
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depthObj++
		case '}':
			depthObj--
		case '[':
			depthArr++
		case ']':
			depthArr--
		}

		if depthObj == 0 && depthArr == 0 && i > start {
			return i + 1
		}
	}

	return -1
}

// repairTruncation recovers a payload whose text was cut off
// mid-record. It truncates to the last complete record terminator and
// appends the closing bracket(s) needed to rebalance. Returns ok=false
// when no complete record terminator exists.
func repairTruncation(s string, shape payloadShape) (string, bool) {
	// A record ends with `"}` when its last field is a string, or a
	// bare `}` otherwise. Prefer the quoted form so a `}` inside a
	// string value cannot fake a record boundary.
	idx := strings.LastIndex(s, `"}`)
	if idx >= 0 {
		idx++ // include the closing brace
	} else {
		idx = strings.LastIndexByte(s, '}')
	}

	if idx < 0 {
		return "", false
	}

	truncated := s[:idx+1]

	switch shape {
	case shapeArray:
		return truncated + "]", true
	case shapeObject:
		return truncated + "]}", true
	default:
		return "", false
	}
}
