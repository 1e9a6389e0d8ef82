// Package auth exposes the identity flows over HTTP: sign-up, sign-in,
// email confirmation, password recovery and the OAuth callback.
//
// Each GET entry point classifies the incoming URL and reconciles it to a
// session state, returned as JSON for the page layer to render. URL
// fragments never reach the server, so the page script mirrors
// location.hash into the "fragment" query parameter before calling these
// endpoints. POST endpoints drive the credential operations directly.
package auth
