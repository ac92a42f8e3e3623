package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/amishk599/leadmail/internal/model"
	"github.com/amishk599/leadmail/internal/table"
)

var exportHeader = []string{"Emails", "Phone Numbers", "Description", "Entry Level", "Reason", "Subject", "Body", "Error"}

// exportRows renders results as table rows, header first.
func exportRows(results []model.LeadResult) [][]string {
	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, exportHeader)
	for _, r := range results {
		c := r.Classification
		rows = append(rows, []string{
			r.Lead.Email,
			r.Lead.Phone,
			r.Lead.Description,
			strconv.FormatBool(c.IsEntryLevel && !r.Failed()),
			c.Reason,
			c.EmailSubject,
			c.EmailBody,
			r.Err,
		})
	}
	return rows
}

// writeExport writes results to path using delim, so the export opens in the
// same spreadsheet tool as the input.
func writeExport(path string, delim rune, results []model.LeadResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := table.Write(f, delim, exportRows(results)); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
