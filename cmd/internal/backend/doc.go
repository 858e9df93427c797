// Package backend is the console's client for the content-management backend.
//
// The backend is a Strapi-style REST API: collections live under /api/<name>,
// list responses are {data, meta} envelopes, writes wrap the payload in
// {data: ...}, and failures carry {error: {message}}. Filters and population
// are expressed with bracketed query keys (filters[user][documentId][$eq]=...).
//
// Every call takes the caller's bearer token explicitly; the client holds no
// session state.
package backend
