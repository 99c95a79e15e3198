// Package extract turns OCR candidates into validated PAN card fields.
//
// Every field is resolved by a tagged list of strategies. Names and the date
// of birth take the first strategy that succeeds on any candidate, trying
// candidates in ensemble order. The document number is voted across
// candidates. Returned fields always pass their own validator.
package extract

import (
	"strings"
	"time"

	"suiverify/internal/document/models"
	"suiverify/internal/document/ocr"
)

// Fields maps each resolved field to its value. Unresolved fields are absent.
type Fields map[models.FieldName]models.ExtractedField

// Value returns the resolved value of name, or "".
func (f Fields) Value(name models.FieldName) string {
	return f[name].Value
}

// pool is the read-only view strategies work on.
type pool struct {
	texts []string
	lines [][]string
	now   time.Time
}

func newPool(cands []ocr.Candidate, now time.Time) *pool {
	p := &pool{texts: make([]string, len(cands)), lines: make([][]string, len(cands)), now: now}
	for i, c := range cands {
		p.texts[i] = c.Text
		p.lines[i] = splitLines(c.Text)
	}
	return p
}

func splitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

type strategy struct {
	ID    models.StrategyID
	Apply func(p *pool) (value string, candidate int, ok bool)
}

// perCandidate lifts a single-text rule into a pool strategy that tries the
// candidates in order.
func perCandidate(id models.StrategyID, fn func(p *pool, i int) (string, bool)) strategy {
	return strategy{ID: id, Apply: func(p *pool) (string, int, bool) {
		for i := range p.texts {
			if v, ok := fn(p, i); ok {
				return v, i, true
			}
		}
		return "", 0, false
	}}
}

func firstSuccess(p *pool, name models.FieldName, strategies []strategy) (models.ExtractedField, bool) {
	for _, s := range strategies {
		if v, idx, ok := s.Apply(p); ok {
			return models.ExtractedField{Name: name, Value: v, Strategy: s.ID, CandidateIndex: idx, Valid: true}, true
		}
	}
	return models.ExtractedField{}, false
}

// Extract resolves all PAN fields from the candidates, judging dates against
// the current clock.
func Extract(cands []ocr.Candidate) Fields {
	return ExtractAt(cands, time.Now())
}

// ExtractAt is Extract with an explicit clock.
func ExtractAt(cands []ocr.Candidate, now time.Time) Fields {
	out := Fields{}
	if len(cands) == 0 {
		return out
	}
	p := newPool(cands, now)

	if f, ok := resolvePAN(p); ok {
		out[models.FieldDocumentNumber] = f
	}
	if f, ok := firstSuccess(p, models.FieldDateOfBirth, dobStrategies()); ok {
		out[models.FieldDateOfBirth] = f
	}
	secondary, hasSecondary := firstSuccess(p, models.FieldSecondaryName, secondaryStrategies())
	holder, hasHolder := firstSuccess(p, models.FieldHolderName, holderStrategies(secondary.Value))
	if hasHolder {
		out[models.FieldHolderName] = holder
	}
	if !hasSecondary {
		secondary, hasSecondary = firstSuccess(p, models.FieldSecondaryName, secondaryFallbacks(holder.Value))
	}
	if hasSecondary {
		out[models.FieldSecondaryName] = secondary
	}
	return out
}

// Score is the share of expected fields that resolved to a valid value.
func Score(fields Fields, expected []models.FieldName) float64 {
	if len(expected) == 0 {
		return 0
	}
	hits := 0
	for _, name := range expected {
		if f, ok := fields[name]; ok && f.Valid && f.Value != "" {
			hits++
		}
	}
	return float64(hits) / float64(len(expected))
}

// Validate normalizes a user supplied value for name and reports whether it
// passes the same validator the extractor applies.
func Validate(name models.FieldName, value string, now time.Time) (string, bool) {
	switch name {
	case models.FieldDocumentNumber:
		v := strings.ToUpper(strings.Join(strings.Fields(value), ""))
		return v, ValidPAN(v)
	case models.FieldHolderName:
		v := strings.Join(strings.Fields(strings.ToUpper(value)), " ")
		return v, ValidName(v, false)
	case models.FieldSecondaryName:
		v := strings.Join(strings.Fields(strings.ToUpper(value)), " ")
		return v, ValidName(v, true)
	case models.FieldDateOfBirth:
		return NormalizeDate(value, now)
	}
	return "", false
}
