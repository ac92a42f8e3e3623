package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rules holds the keyword tables the engine matches against. Matching is a
// case-insensitive substring test, so "intern" also matches "internship".
type Rules struct {
	EntryKeywords  []string
	SeniorKeywords []string
	Fields         []FieldRule // first match wins
}

// FieldRule maps a vocabulary of keywords onto a field/industry label.
type FieldRule struct {
	Label    string
	Keywords []string
}

// Digest identifies the tables' contents. Two Rules with the same keywords in
// the same order share a digest.
func (r Rules) Digest() string {
	h := sha256.New()
	write := func(section string, words []string) {
		h.Write([]byte(section))
		for _, w := range words {
			h.Write([]byte{0})
			h.Write([]byte(strings.ToLower(w)))
		}
		h.Write([]byte{1})
	}
	write("entry", r.EntryKeywords)
	write("senior", r.SeniorKeywords)
	for _, f := range r.Fields {
		write("field:"+f.Label, f.Keywords)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// DefaultRules returns the built-in keyword tables.
func DefaultRules() Rules {
	senior := []string{"senior", "lead", "principal", "architect", "manager"}
	for n := 3; n <= 10; n++ {
		senior = append(senior, fmt.Sprintf("%d+ year", n))
	}
	for n := 3; n <= 5; n++ {
		senior = append(senior, fmt.Sprintf("minimum %d year", n), fmt.Sprintf("at least %d year", n))
	}

	return Rules{
		EntryKeywords: []string{
			"entry level",
			"entry-level",
			"junior",
			"graduate",
			"intern",
			"trainee",
			"no experience",
			"0-1 year",
			"0-2 year",
			"1+ year",
			"2+ year",
		},
		SeniorKeywords: senior,
		Fields: []FieldRule{
			{Label: FieldSoftware, Keywords: []string{"software", "developer", "engineer"}},
			{Label: FieldDesign, Keywords: []string{"design", "ui", "ux"}},
			{Label: FieldMarketing, Keywords: []string{"marketing"}},
			{Label: FieldData, Keywords: []string{"data", "analyst"}},
			{Label: FieldSales, Keywords: []string{"sales"}},
		},
	}
}

// Field labels produced by DefaultRules.
const (
	FieldSoftware  = "software development"
	FieldDesign    = "design"
	FieldMarketing = "marketing"
	FieldData      = "data analytics"
	FieldSales     = "sales"
	FieldDefault   = "this field"
)

// Reasons attached to classifications.
const (
	ReasonEntryKeywords = "Contains entry-level keywords and no senior requirements"
	ReasonSenior        = "Contains senior/experienced position keywords"
	ReasonNoSignal      = "No specific experience requirements mentioned - likely entry-level"
)

// Only "at least N years" is extracted numerically. Ranges such as "0-2 year"
// count solely through keyword containment.
var yearsPattern = regexp.MustCompile(`(?i)at\s+least\s+(\d+)\+?\s+years?`)

// Evidence is what the engine found in a description before deciding.
type Evidence struct {
	HasEntryKeyword  bool
	HasSeniorKeyword bool
	MaxYearsRequired int
	MinYearsRequired int // 0 when no requirement was found
}

// decide applies the ordered decision rules; the first matching rule wins.
func (e Evidence) decide() (bool, string) {
	switch {
	case e.HasEntryKeyword && !e.HasSeniorKeyword:
		return true, ReasonEntryKeywords
	case e.HasSeniorKeyword:
		return false, ReasonSenior
	case e.MaxYearsRequired > 2:
		return false, fmt.Sprintf("Requires %d+ years of experience", e.MaxYearsRequired)
	case e.MaxYearsRequired > 0:
		return true, fmt.Sprintf("Requires %d years or less - entry-level acceptable", e.MaxYearsRequired)
	default:
		return true, ReasonNoSignal
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func yearsRequired(text string) (maxYears, minYears int) {
	for _, m := range yearsPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > maxYears {
			maxYears = n
		}
		if minYears == 0 || n < minYears {
			minYears = n
		}
	}
	return maxYears, minYears
}
