// Package httpserver wraps net/http with graceful shutdown, signal handling
// and structured logging for the auth service's entry points.
package httpserver
