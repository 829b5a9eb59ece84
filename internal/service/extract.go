package service

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pageza/pantrychef/backend/internal/models"
)

// validateBudget bounds the bytes handed to gjson.Valid per byte of input,
// so nested invalid payloads cannot turn extraction quadratic.
const validateBudget = 4

type span struct{ start, end int }

// ExtractJSON returns the longest valid JSON object or array embedded in
// text, or "" when there is none. Models often wrap the payload in prose or
// code fences.
func ExtractJSON(text string) string {
	spans := bracketSpans(text)
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].end-spans[i].start > spans[j].end-spans[j].start
	})

	budget := validateBudget * len(text)
	for _, sp := range spans {
		payload := text[sp.start : sp.end+1]
		if len(payload) > budget {
			continue
		}
		budget -= len(payload)
		if gjson.Valid(payload) {
			return payload
		}
	}
	return ""
}

// bracketSpans finds every balanced bracket span in one pass. Quotes only
// open string literals inside a bracket; outside one they are prose. A
// mismatched closer invalidates every bracket still open.
func bracketSpans(text string) []span {
	type open struct {
		pos   int
		want  byte
	}
	var (
		stack    []open
		spans    []span
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = len(stack) > 0
		case '{':
			stack = append(stack, open{pos: i, want: '}'})
		case '[':
			stack = append(stack, open{pos: i, want: ']'})
		case '}', ']':
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if top.want != ch {
				stack = stack[:0]
				continue
			}
			stack = stack[:len(stack)-1]
			spans = append(spans, span{start: top.pos, end: i})
		}
	}
	return spans
}

// ParseCandidates reads recipe candidates from generator output. It accepts
// {"recipes":[...]}, a bare array of recipes, or a single recipe object.
func ParseCandidates(text string) ([]Candidate, error) {
	payload := ExtractJSON(text)
	if payload == "" {
		return nil, ErrUnparseable
	}

	root := gjson.Parse(payload)
	var items []gjson.Result
	switch {
	case root.IsArray():
		items = root.Array()
	case root.Get("recipes").IsArray():
		items = root.Get("recipes").Array()
	case root.Get("name").Exists():
		items = []gjson.Result{root}
	default:
		return nil, ErrEmptyCandidates
	}

	candidates := make([]Candidate, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		candidates = append(candidates, parseCandidate(item))
	}
	return candidates, nil
}

func parseCandidate(r gjson.Result) Candidate {
	c := Candidate{Name: strings.TrimSpace(r.Get("name").String())}

	for _, ing := range r.Get("ingredients").Array() {
		if ing.IsObject() {
			c.Lines = append(c.Lines, models.Line{
				Name:     ing.Get("name").String(),
				Quantity: ing.Get("quantity").Float(),
				Unit:     ing.Get("unit").String(),
			})
			continue
		}
		// A bare name carries no quantity and fails validation.
		c.Lines = append(c.Lines, models.Line{Name: ing.String()})
	}

	steps := r.Get("instructions")
	if !steps.Exists() {
		steps = r.Get("steps")
	}
	if steps.IsArray() {
		for _, s := range steps.Array() {
			if step := strings.TrimSpace(s.String()); step != "" {
				c.Instructions = append(c.Instructions, step)
			}
		}
	} else if step := strings.TrimSpace(steps.String()); step != "" {
		c.Instructions = []string{step}
	}

	if q := r.Get("quality"); q.Type == gjson.Number {
		v := q.Float()
		c.Quality = &v
	}
	return c
}
