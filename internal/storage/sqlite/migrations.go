package sqlite

import "database/sql"

// schema runs on startup to ensure tables exist.
// Fee definitions must be created before student_fees due to the foreign key.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    role TEXT NOT NULL,
    student_id TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fees (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL,
    amount REAL NOT NULL,
    deadline TEXT NOT NULL,
    semester TEXT NOT NULL DEFAULT '',
    academic_year TEXT NOT NULL DEFAULT '',
    is_installment_available INTEGER NOT NULL DEFAULT 0,
    installment_count INTEGER,
    installment_amount REAL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS student_fees (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL,
    fee_id TEXT NOT NULL,
    amount_due REAL NOT NULL,
    amount_paid REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at INTEGER NOT NULL,
    UNIQUE (student_id, fee_id),
    FOREIGN KEY (student_id) REFERENCES users(id) ON DELETE CASCADE,
    FOREIGN KEY (fee_id) REFERENCES fees(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payment_intents (
    id TEXT PRIMARY KEY,
    student_fee_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    amount REAL NOT NULL,
    currency TEXT NOT NULL,
    status TEXT NOT NULL,
    client_secret TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (student_fee_id) REFERENCES student_fees(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payments (
    id TEXT PRIMARY KEY,
    student_fee_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    intent_id TEXT NOT NULL,
    payment_method_id TEXT NOT NULL,
    method TEXT NOT NULL,
    amount_paid REAL NOT NULL,
    transaction_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'paid',
    paid_at INTEGER NOT NULL,
    FOREIGN KEY (student_fee_id) REFERENCES student_fees(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_student_fees_student_id ON student_fees(student_id);
CREATE INDEX IF NOT EXISTS idx_student_fees_fee_id ON student_fees(fee_id);
CREATE INDEX IF NOT EXISTS idx_payments_user_id ON payments(user_id);
CREATE INDEX IF NOT EXISTS idx_payment_intents_student_fee_id ON payment_intents(student_fee_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
