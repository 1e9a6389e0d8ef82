// Package redis bootstraps the Redis client backing the shared token store.
// It wraps go-redis connection setup with environment-driven configuration,
// connect-time retries and a health check closure.
package redis
