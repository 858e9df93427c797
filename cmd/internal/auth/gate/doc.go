// Package gate guards protected console routes.
//
// A Gate observes the session store and, per request, decides between a
// neutral loading response (session still resolving), a redirect to the login
// entry point (no session), or rendering the protected handler. Role
// parameters are accepted on every route; whether they restrict anything is
// decided by one RolePolicy.
package gate
