package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"pgmirror/shared/application/ports"
)

type baseRepository struct {
	db      ports.Database
	logger  ports.Logger
	metrics ports.Metrics
	table   string
	qb      squirrel.StatementBuilderType
}

func newBaseRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics, table string) *baseRepository {
	return &baseRepository{
		db:      db,
		logger:  logger,
		metrics: metrics,
		table:   table,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// selectInto runs query and scans every row into dest, a pointer to a slice
func (r *baseRepository) selectInto(ctx context.Context, op string, dest interface{}, query squirrel.Sqlizer) error {
	r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.%s", r.table, op), nil)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := r.db.Select(ctx, dest, sqlQuery, args...); err != nil {
		r.logger.Error("Query failed", "table", r.table, "op", op, "error", err)
		r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.errors", r.table), nil)
		return fmt.Errorf("%s %s: %w", op, r.table, err)
	}
	return nil
}
