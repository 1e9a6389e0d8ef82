// Package profile manages the application-owned profile row attached to each
// identity.
//
// The row lives in a row-level-secured table keyed by identity id, and an
// asynchronous trigger on the identity authority may race this package to
// create it. The Coordinator's EnsureProfile absorbs that race: it upserts
// rather than inserts, treats a permission denial without a visible session
// as "the trigger will create it", and retries a denial under a live session
// once before giving up. A username uniqueness violation is always surfaced
// separately because the user can fix it, unlike the race.
package profile
