// Package validator implements the pure credential checks that run before
// any call reaches the identity authority.
//
// Validation is expressed as Rule values evaluated with Apply:
//
//	err := validator.Apply(
//		validator.ValidEmail("email", email),
//		validator.ValidUsername("username", username),
//		validator.StrongPassword("password", password),
//	)
//
// A failed Apply returns ValidationErrors, a slice of field-scoped errors
// each carrying a stable Code so callers can branch on the exact failure
// (too short vs missing character class) without parsing messages. Rules are
// pure and synchronous; they never touch the network.
package validator
