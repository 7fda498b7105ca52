// Package database opens PostgreSQL connections through database/sql and
// classifies the errors drivers return.
//
// Both the pgx stdlib driver ("pgx", the default) and lib/pq ("postgres")
// are registered. SQLState and IsConnectionError understand the error types
// of either driver.
package database
