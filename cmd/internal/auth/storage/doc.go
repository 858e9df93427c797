// Package storage persists the console's operator credentials across restarts.
//
// It plays the role browser local storage played for the web console: a small
// string key/value space holding the bearer token ("token") and the account
// identifier ("userId"). Three backends are provided:
//
//   - Memory: process-local, used by tests and ephemeral deployments.
//   - File: a single JSON document replaced atomically on every write.
//   - Bolt: a bbolt database with one bucket.
//
// File and Bolt backends can seal values at rest with XChaCha20-Poly1305 when a
// storage key is configured (METHODIUS_STORAGE_KEY).
package storage
