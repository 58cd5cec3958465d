package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/diagnosis/bloodcare/internal/domain"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// countedUpdate builds an UPDATE of the row with id=$1 that reports matched
// and modified rows separately. The SET only runs where changed holds, so a
// write that leaves the row as it was is matched but not modified.
func countedUpdate(table, set, changed string) string {
	return `
WITH target AS (SELECT 1 FROM ` + table + ` WHERE id=$1),
changed AS (
    UPDATE ` + table + `
    SET ` + set + `
    WHERE id=$1 AND (` + changed + `)
    RETURNING 1
)
SELECT (SELECT count(*) FROM target), (SELECT count(*) FROM changed)`
}

func execCounted(ctx context.Context, db rowQuerier, op, q string, args ...any) (domain.WriteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var matched, modified int64
	if err := db.QueryRow(ctx, q, args...).Scan(&matched, &modified); err != nil {
		return domain.WriteResult{}, domain.StoreFailure(op, err)
	}
	return domain.Updated(matched, modified), nil
}
