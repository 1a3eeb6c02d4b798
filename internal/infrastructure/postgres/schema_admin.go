package postgres

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// SchemaAdmin DDL de los hooks de módulos y borrado de sus tablas.
type SchemaAdmin struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

func NewSchemaAdmin(pool *pgxpool.Pool) *SchemaAdmin {
	return &SchemaAdmin{pool: pool, tx: NewTxRunner(pool)}
}

func (s *SchemaAdmin) ExecSchema(ctx context.Context, stmt string) error {
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}

// DropTables borra todas las tablas en una sola transacción; o todas o ninguna.
func (s *SchemaAdmin) DropTables(ctx context.Context, tables []string) error {
	stmts, err := dropStatements(tables)
	if err != nil {
		return err
	}
	return s.tx.Run(ctx, func(q Querier) error {
		for _, stmt := range stmts {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("drop table: %w", err)
			}
		}
		return nil
	})
}

func dropStatements(tables []string) ([]string, error) {
	stmts := make([]string, 0, len(tables))
	for _, t := range tables {
		if !tableName.MatchString(t) {
			return nil, fmt.Errorf("nombre de tabla inválido %q", t)
		}
		stmts = append(stmts, "DROP TABLE IF EXISTS "+pgx.Identifier{t}.Sanitize()+" CASCADE")
	}
	return stmts, nil
}
