// Package authapi serves the console's login surface: the login page and form,
// the JSON login endpoint, logout, and the gated /me identity view.
//
// Credentials are checked by the backend; on success the returned bearer token
// and account are handed to the session store. Failed attempts are throttled
// per client IP and per identifier and recorded through an AuditSink.
package authapi
