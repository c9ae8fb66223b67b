package sqlite

import "database/sql"

// schema sets up bill history and profiles. It runs on startup and is
// idempotent. Items carry their guest so the split can be rebuilt on read.
const schema = `
CREATE TABLE IF NOT EXISTS bills (
    id TEXT PRIMARY KEY,
    restaurant TEXT NOT NULL,
    subtotal REAL NOT NULL,
    tax REAL NOT NULL,
    tip REAL NOT NULL,
    total REAL NOT NULL,
    currency_symbol TEXT NOT NULL DEFAULT '',
    conversion_from TEXT,
    conversion_to TEXT,
    conversion_rate REAL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    bill_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    price REAL NOT NULL,
    guest TEXT,
    PRIMARY KEY (bill_id, position),
    FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS guests (
    bill_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    subtotal REAL NOT NULL,
    tax REAL NOT NULL,
    tip REAL NOT NULL,
    total REAL NOT NULL,
    PRIMARY KEY (bill_id, position),
    FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS profiles (
    id TEXT PRIMARY KEY,
    venmo_username TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bills_created_at ON bills(created_at);
CREATE INDEX IF NOT EXISTS idx_items_bill_id ON items(bill_id);
CREATE INDEX IF NOT EXISTS idx_guests_bill_id ON guests(bill_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
