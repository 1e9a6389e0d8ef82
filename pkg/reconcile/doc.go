// Package reconcile drives a page load from an entry classification to one
// consistent session state.
//
// The Reconciler is an explicit state machine over awaiting, verifying,
// verified and error. Verified and error are terminal for the page load: a
// fresh load builds a fresh Reconciler. A re-entrancy guard keyed on the
// classification fingerprint makes repeated Reconcile calls for the same
// payload no-ops, so UI layers can re-render and re-dispatch freely without
// double-spending single-use codes.
//
// Reaching verified requires both a successful gateway call and a read-back
// showing a confirmed email. A successful call whose read-back is still
// unconfirmed falls back to awaiting exactly once, since it may just be
// propagation delay.
package reconcile
