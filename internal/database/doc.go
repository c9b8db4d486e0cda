// Package database provides the PostgreSQL connection pool used for
// rebase history persistence. The pool is optional; a stabilizer with
// persistence disabled never opens one.
package database
