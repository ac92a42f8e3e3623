// Package table parses delimited lead spreadsheets exported as CSV, TSV or
// semicolon-separated text.
package table

import (
	"strings"
	"unicode/utf8"

	"github.com/amishk599/leadmail/internal/model"
)

// Header names, compared after trimming and lower-casing.
const (
	HeaderEmail       = "emails"
	HeaderDescription = "description"
	HeaderPhone       = "phone numbers"
)

// Result is the detailed outcome of ParseTableDetailed.
type Result struct {
	Leads     []model.Lead
	Delimiter rune
	Dropped   []int // 1-based row numbers (header is row 1) lacking an email or description
}

// ParseTable converts raw delimited text into leads. Empty or whitespace-only
// text yields no leads. A header row without the Emails or Description column
// fails with *model.SchemaError.
func ParseTable(text string) ([]model.Lead, error) {
	res, err := ParseTableDetailed(text)
	if err != nil {
		return nil, err
	}
	return res.Leads, nil
}

// ParseTableDetailed is ParseTable plus the detected delimiter and the rows
// that were dropped for missing required values.
func ParseTableDetailed(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{Leads: []model.Lead{}, Delimiter: ','}, nil
	}

	delim := DetectDelimiter(text)
	rows := Tokenize(text, delim)
	if len(rows) == 0 {
		return Result{Leads: []model.Lead{}, Delimiter: delim}, nil
	}

	header := rows[0]
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	var missing []string
	for _, name := range []string{HeaderEmail, HeaderDescription} {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Result{}, &model.SchemaError{Headers: header, Missing: missing}
	}

	res := Result{Leads: make([]model.Lead, 0, len(rows)-1), Delimiter: delim}
	for n, row := range rows[1:] {
		if len(row) == 1 && row[0] == "" {
			continue
		}

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		lead := model.Lead{
			Email:       get(HeaderEmail),
			Phone:       get(HeaderPhone),
			Description: get(HeaderDescription),
		}
		if lead.Email == "" || lead.Description == "" {
			res.Dropped = append(res.Dropped, n+2)
			continue
		}
		res.Leads = append(res.Leads, lead)
	}
	return res, nil
}

// DetectDelimiter inspects the first line of text and picks semicolon or tab
// when it is strictly the most frequent candidate, comma otherwise.
func DetectDelimiter(text string) rune {
	first := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		first = text[:i]
	}

	commas := strings.Count(first, ",")
	semis := strings.Count(first, ";")
	tabs := strings.Count(first, "\t")

	switch {
	case semis > commas && semis > tabs:
		return ';'
	case tabs > commas && tabs > semis:
		return '\t'
	default:
		return ','
	}
}

// Tokenize splits text into rows of fields using delim. Double quotes group
// fields that contain delimiters or line breaks; "" inside quotes is a literal
// quote. LF, CR and CRLF all terminate a row.
func Tokenize(text string, delim rune) [][]string {
	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	endField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	endRow := func() {
		endField()
		rows = append(rows, row)
		row = nil
	}

	// Decode rune by rune but copy the original bytes, so invalid UTF-8 in a
	// field survives unchanged instead of becoming U+FFFD.
	for i := 0; i < len(text); {
		c, size := utf8.DecodeRuneInString(text[i:])
		raw := text[i : i+size]
		i += size

		if inQuotes {
			switch {
			case c == '"' && strings.HasPrefix(text[i:], `"`):
				field.WriteByte('"')
				i++
			case c == '"':
				inQuotes = false
			default:
				field.WriteString(raw)
			}
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case delim:
			endField()
		case '\r':
			if strings.HasPrefix(text[i:], "\n") {
				i++
			}
			endRow()
		case '\n':
			endRow()
		default:
			field.WriteString(raw)
		}
	}

	if field.Len() > 0 || len(row) > 0 {
		endRow()
	}
	return rows
}
