// Package logger builds configured slog.Logger instances.
//
// The factory applies functional options over production-safe defaults
// (JSON handler, info level, stdout):
//
//	log := logger.New(
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithTextFormatter(),
//		logger.WithAttr(slog.String("service", "identity")),
//	)
//
// Every component in this module accepts a *slog.Logger via its own option
// and defaults to a discard logger, so logging is always opt-in.
package logger
