package database

// Bill ledger queries
const (
	InsertBillSQL = `
		INSERT INTO bills (number, terminal, issued_at, item_count, total_amount)
		VALUES ($1, $2, $3, $4, $5::numeric)
		RETURNING id`

	InsertBillItemSQL = `
		INSERT INTO bill_items (bill_id, position, name, price)
		VALUES ($1, $2, $3, $4::numeric)`

	// $2 is the day's number prefix, e.g. BILL_20261019_
	SelectLastBillSequenceSQL = `
		SELECT COALESCE(MAX(CAST(SUBSTRING(number FROM char_length($2) + 1) AS INTEGER)), 0)
		FROM bills
		WHERE terminal = $1 AND number LIKE $2 || '%'`
)

// Migration bookkeeping
const (
	CreateMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	SelectAppliedMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	InsertMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)
