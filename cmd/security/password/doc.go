// Package password checks passwords the console sets on backend accounts.
//
// The backend stores and verifies credentials; the console only refuses
// passwords that break the configured policy before registering or resetting
// an account.
package password
