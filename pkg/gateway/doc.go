// Package gateway implements the client for the external identity
// authority: sign-up, sign-in (password and OAuth), code exchange, one-time
// code verification, session refresh and sign-out.
//
// The client owns no flow state. Every operation is a request/response pair
// whose failures are mapped, once, at this boundary into the package's error
// taxonomy (see errors.go and classify.go); callers never inspect raw
// authority messages. Session material lives in a TokenStore with a single
// mutable session slot, matching the one-session-per-browser-context
// invariant.
//
//	store := gateway.NewMemoryStore()
//	client := gateway.NewClient(cfg, store,
//		gateway.WithLogger(log),
//	)
//
//	session, err := client.SignInWithPassword(ctx, email, password)
//	switch {
//	case errors.Is(err, gateway.ErrInvalidCredentials):
//		// wrong password - prompt again or offer reset
//	case errors.Is(err, gateway.ErrEmailNotConfirmed):
//		// direct the user to the confirmation flow
//	}
//
// Transient transport failures are retried with a bounded constant backoff.
// Authorization-code exchange is never retried: codes are single-use and a
// second attempt can only fail differently.
package gateway
