// Package entrypoint classifies a page-load URL into exactly one entry
// classification: which verification, recovery, or OAuth path the browser
// landed on, and which tokens it carries.
//
// Several link shapes are structurally ambiguous. A bare code parameter is
// emitted by both the OAuth flow and the recovery flow, and an error
// parameter can mean an OAuth failure or an expired recovery link. Classify
// resolves the ambiguity with a fixed precedence order so that each URL maps
// to one classification and an OAuth failure is never presented as a
// recovery-link failure.
//
// Classification is pure and synchronous over already-available URL data. It
// performs no I/O, so it always completes before any session-establishing
// call is issued.
package entrypoint
