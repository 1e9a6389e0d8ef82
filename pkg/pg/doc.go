// Package pg bootstraps the PostgreSQL connection pool used by the profile
// store. It wraps pgx/v5 pooling with environment-driven configuration,
// connect-time retries, a health check closure, and the SQLSTATE helpers the
// profile upsert needs to tell a uniqueness violation apart from a
// row-level-security denial.
package pg
