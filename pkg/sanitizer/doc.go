// Package sanitizer provides composable input normalization helpers used
// before credential validation.
//
// Transformations are plain func(T) T values combined with Apply or Compose,
// so call sites can build normalization pipelines without intermediate
// variables:
//
//	email := sanitizer.NormalizeEmail("  User@Example.COM ")
//	// "user@example.com"
//
//	normalize := sanitizer.Compose(sanitizer.Trim, sanitizer.ToLower)
//	username := normalize(input)
//
// Sanitization never rejects input; it only normalizes. Rejection is the
// validator's job.
package sanitizer
