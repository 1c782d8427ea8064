package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

const statusTable = "product_status"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// upsertSuffix keeps changed_at pinned to the last transition while
// updated_at moves on every save.
const upsertSuffix = `ON CONFLICT (product_id) DO UPDATE SET
	status = EXCLUDED.status,
	updated_at = EXCLUDED.updated_at,
	changed_at = CASE
		WHEN product_status.status = EXCLUDED.status THEN product_status.changed_at
		ELSE EXCLUDED.changed_at
	END`

func selectStatuses() (string, []any, error) {
	return psql.
		Select("product_id", "status").
		From(statusTable).
		OrderBy("product_id").
		ToSql()
}

// upsertStatuses builds one multi-row upsert for every key of m, in key order.
func upsertStatuses(m domain.StatusMap, now time.Time) (string, []any, error) {
	b := psql.
		Insert(statusTable).
		Columns("product_id", "status", "updated_at", "changed_at")
	for _, id := range m.Keys() {
		b = b.Values(id, string(m[id]), now, now)
	}
	return b.Suffix(upsertSuffix).ToSql()
}

// deleteStatusesExcept removes rows whose key is not in keep. An empty keep
// list clears the table.
func deleteStatusesExcept(keep []string) (string, []any, error) {
	b := psql.Delete(statusTable)
	if len(keep) > 0 {
		b = b.Where(sq.NotEq{"product_id": keep})
	}
	return b.ToSql()
}
