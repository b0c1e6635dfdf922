package google

import (
	"strings"
	"time"

	"backoffice/internal/ledger"
)

var headerColumns = []string{"ID", "Timestamp", "User", "Email", "Action", "Type", "Item ID", "Description", "Revertible"}

func headerRow() []any {
	row := make([]any, len(headerColumns))
	for i, h := range headerColumns {
		row[i] = h
	}
	return row
}

func entryRow(e ledger.Entry) []any {
	return []any{
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339),
		e.User.Name,
		e.User.Email,
		string(e.Action),
		string(e.Type),
		e.ItemID,
		e.Description,
		e.Revertible,
	}
}

// parseIDs extracts entry ids from column A values and reports whether the
// header row is present.
func parseIDs(values [][]any) (ids []string, header bool) {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		v, _ := row[0].(string)
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if i == 0 && strings.EqualFold(v, headerColumns[0]) {
			header = true
			continue
		}
		ids = append(ids, v)
	}
	return ids, header
}
