// Package session owns the console's operator session.
//
// The console is a single-operator process: one Store holds the bearer token,
// the authenticated account and the optional linked employee profile. The
// store is created from durable storage (token only), re-validated once at
// startup by CheckAuth, and mutated only by Login, Logout and its own
// background profile lookup.
//
// Privilege is derived, never stored: an account without a linked profile is
// privileged. IsPrivileged is the single predicate for that decision.
//
// Transport (HTTP/WS) integration is out of scope here; see package gate.
package session
