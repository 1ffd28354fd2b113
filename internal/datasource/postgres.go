package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"finquery-workers/internal/common/errors"
	"finquery-workers/internal/common/logger"
	"finquery-workers/internal/models"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresRecordSource reads the ledger from a table with txn_date, account, amount and description columns.
type PostgresRecordSource struct {
	db    *sql.DB
	table string
	log   logger.Logger
}

func NewPostgresRecordSource(db *sql.DB, table string, log logger.Logger) (*PostgresRecordSource, error) {
	if table == "" {
		table = "ledger_transactions"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid ledger table name %q", table)
	}
	return &PostgresRecordSource{db: db, table: table, log: log}, nil
}

func (s *PostgresRecordSource) query() string {
	return fmt.Sprintf(`SELECT txn_date, account, amount, description FROM %s ORDER BY txn_date`, s.table)
}

func (s *PostgresRecordSource) LoadRecords(ctx context.Context) ([]models.FinancialRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.query())
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("ledger", err)
	}
	defer rows.Close()

	var records []models.FinancialRecord
	skipped := 0
	for rows.Next() {
		var (
			date        sql.NullTime
			account     sql.NullString
			amount      sql.NullString
			description sql.NullString
		)
		if err := rows.Scan(&date, &account, &amount, &description); err != nil {
			return nil, errors.NewQueryExecutionFailedError("ledger", err)
		}

		name := normalizeAccount(account.String)
		if !date.Valid || !amount.Valid || name == "" {
			skipped++
			continue
		}
		value, err := decimal.NewFromString(strings.TrimSpace(amount.String))
		if err != nil {
			skipped++
			continue
		}

		records = append(records, models.FinancialRecord{
			Date:        models.Day(date.Time),
			Account:     name,
			Amount:      value,
			Description: strings.TrimSpace(description.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("ledger", err)
	}

	if skipped > 0 {
		s.log.Warn("Skipped incomplete ledger rows", map[string]interface{}{
			"table":   s.table,
			"skipped": skipped,
		})
	}
	s.log.Debug("Ledger rows loaded", map[string]interface{}{
		"table": s.table,
		"rows":  len(records),
	})
	return records, nil
}
