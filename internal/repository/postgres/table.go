package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/RMahshie/sensorscope/internal/repository"
	"github.com/RMahshie/sensorscope/pkg/models"
	"github.com/lib/pq"
)

// EpochColumn holds the nanosecond timestamp of each exported row
const EpochColumn = "epoch_ns"

var tableNames = map[string]string{
	models.StoreGeneric:         "general_data",
	models.StoreThermocouple:    "th_data",
	models.StoreAccelerometer:   "acc_data",
	models.StoreElectromagnetic: "eh_data",
}

// TableName returns the table a store ID exports to
func TableName(storeID string) (string, error) {
	name, ok := tableNames[storeID]
	if !ok {
		return "", fmt.Errorf("unknown table store %q", storeID)
	}
	return name, nil
}

// PostgresTableExporter writes channel tables with COPY, one table per store
type PostgresTableExporter struct {
	db *sql.DB
}

// NewPostgresTableExporter creates a table exporter on db
func NewPostgresTableExporter(db *sql.DB) repository.TableExporter {
	return &PostgresTableExporter{db: db}
}

// ExportTable replaces the store's table with t inside one transaction
func (e *PostgresTableExporter) ExportTable(ctx context.Context, t models.Table, storeID string) error {
	name, err := TableName(storeID)
	if err != nil {
		return err
	}
	if err := checkColumns(t); err != nil {
		return err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin export: %w", err)
	}
	defer tx.Rollback()

	table := pq.QuoteIdentifier(name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("failed to drop %s: %w", name, err)
	}

	defs := []string{pq.QuoteIdentifier(EpochColumn) + " BIGINT NOT NULL"}
	for _, c := range t.Columns {
		defs = append(defs, pq.QuoteIdentifier(c)+" DOUBLE PRECISION")
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(name, append([]string{EpochColumn}, t.Columns...)...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy into %s: %w", name, err)
	}

	args := make([]any, len(t.Columns)+1)
	for _, row := range t.Rows {
		args[0] = row.EpochNs
		for i, v := range row.Values {
			args[i+1] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy row into %s: %w", name, err)
		}
	}

	// An empty exec flushes the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy into %s: %w", name, err)
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	return tx.Commit()
}

func checkColumns(t models.Table) error {
	seen := map[string]bool{EpochColumn: true}
	for _, c := range t.Columns {
		if c == "" {
			return fmt.Errorf("table has an unnamed column")
		}
		if seen[c] {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	for i, row := range t.Rows {
		if len(row.Values) != len(t.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row.Values), len(t.Columns))
		}
	}
	return nil
}
