// Package resend rate-limits verification email resends on the client side.
//
// After a successful resend, further requests for the same address are
// rejected locally for a fixed cooldown window without touching the network.
// The window is purely advisory: the authority enforces its own limits
// independently, so this layer exists to give the user an honest countdown
// instead of a surprise rate-limit error.
package resend
