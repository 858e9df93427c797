package session

// Snapshot is an immutable copy of the session at one point in time.
// Readers (the gate, handlers, the feed) only ever see snapshots.
type Snapshot struct {
	State State `json:"state"`

	// Token is the bearer credential. It never leaves the process.
	Token string `json:"-"`

	Account *Account `json:"account,omitempty"`
	Profile *Profile `json:"profile,omitempty"`

	// ProfilePending is true while a linked-profile lookup is in flight.
	ProfilePending bool `json:"profilePending"`
}

// Resolving reports whether the startup re-validation has not settled yet.
func (s Snapshot) Resolving() bool {
	return s.State == StateUnresolved || s.State == StateResolving
}

// Authenticated reports a resolved session holding both token and account.
func (s Snapshot) Authenticated() bool {
	return !s.Resolving() && s.Token != "" && s.Account != nil
}

// IsPrivileged reports account != nil && profile == nil.
//
// It is the only privilege predicate; admin, HR and management access all
// resolve to it until distinct roles exist.
func (s Snapshot) IsPrivileged() bool {
	return s.Account != nil && s.Profile == nil
}

// DisplayName is the profile name when linked, else the account username.
func (s Snapshot) DisplayName() string {
	if s.Profile != nil {
		if n := s.Profile.DisplayName(); n != "" {
			return n
		}
	}
	if s.Account != nil {
		return s.Account.Username
	}
	return ""
}

func cloneAccount(a *Account) *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func cloneProfile(p *Profile) *Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
