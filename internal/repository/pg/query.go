package pg

import (
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

func errNoRows() error {
	return pgx.ErrNoRows
}

// allowedSortColumns guards ORDER BY against injection since column names
// cannot be bound as parameters
var allowedSortColumns = []string{
	"created_at", "updated_at", "name", "code", "due_date", "issue_date",
	"payment_date", "received_at", "amount", "total_amount",
}

func sanitizeSortColumn(col string) string {
	if lo.Contains(allowedSortColumns, col) {
		return col
	}
	return "created_at"
}

func sanitizeSortOrder(order string) string {
	if order == "asc" {
		return "asc"
	}
	return "desc"
}
