package table

import (
	"bufio"
	"io"
	"strings"
)

// Write serializes rows using delim, quoting any field that contains the
// delimiter, a double quote or a line break. Tokenize(output, delim)
// reproduces rows.
func Write(w io.Writer, delim rune, rows [][]string) error {
	bw := bufio.NewWriter(w)
	special := string(delim) + "\"\r\n"

	for _, row := range rows {
		for i, f := range row {
			if i > 0 {
				if _, err := bw.WriteRune(delim); err != nil {
					return err
				}
			}
			if strings.ContainsAny(f, special) {
				f = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
			}
			if _, err := bw.WriteString(f); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
