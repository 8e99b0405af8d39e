// Package sqlxrepos implements the core repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Rahuly1606/Virtual-Classroom-sub000/core"
)

type repository struct {
	db *sqlx.DB
}

// ext resolves the executor for one call: the optional override (typically a
// transaction) when given, the pooled handle otherwise.
func (repo repository) ext(exec ...core.DBExecutor) sqlx.ExtContext {
	if len(exec) > 0 && exec[0] != nil {
		switch e := exec[0].(type) {
		case *sql.Tx:
			return sqlx.NewTx(e, repo.db.DriverName())
		case sqlx.ExtContext:
			return e
		}
	}
	return repo.db
}

func orderBy(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + fallback
	}
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		clauses = append(clauses, ord.String())
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}
