// Package token provides secret-key and bearer-token primitives for Methodius.
//
// It is the single source of truth for two concerns:
//   - fingerprinting backend bearer tokens so logs and audit rows can correlate
//     sessions without ever carrying the raw credential;
//   - loading symmetric key material from the environment with a minimum size.
//
// Environment:
//   - METHODIUS_TOKEN_HMAC_KEY: when set, fingerprints are HMAC-SHA256 based.
//   - METHODIUS_STORAGE_KEY: key used to seal the persisted token at rest.
package token
