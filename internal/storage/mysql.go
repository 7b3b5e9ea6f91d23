package storage

import "database/sql"

// MySQLClient wraps direct SQL access for triggers, rules, actions,
// trigger instances and executions.
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient wires a sql.DB; pass a configured instance from main.
func NewMySQLClient(db *sql.DB) *MySQLClient {
	return &MySQLClient{db: db}
}
