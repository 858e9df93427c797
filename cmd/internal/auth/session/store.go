package session

import "context"

// Persisted key names. They match the keys the browser console kept in local storage.
const (
	KeyToken     = "token"
	KeyAccountID = "userId"
)

// State is the session lifecycle state.
type State string

const (
	// StateUnresolved is the initial state before CheckAuth starts.
	StateUnresolved State = "unresolved"
	// StateResolving means a re-validation is in flight.
	StateResolving State = "resolving"
	// StateAuthenticated means token and account are both present.
	StateAuthenticated State = "authenticated"
	// StateUnauthenticated means the session is empty.
	StateUnauthenticated State = "unauthenticated"
)

// Account is the raw identity record returned by the backend.
type Account struct {
	ID         int    `json:"id"`
	DocumentID string `json:"documentId"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Confirmed  bool   `json:"confirmed"`
	Blocked    bool   `json:"blocked"`
}

// Profile is the employee record linked to an account by back-reference.
type Profile struct {
	ID         int    `json:"id"`
	DocumentID string `json:"documentId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email,omitempty"`
	Position   string `json:"position,omitempty"`
	PictureURL string `json:"pictureUrl,omitempty"`
}

// DisplayName returns "First Last".
func (p Profile) DisplayName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Directory is the backend surface the store needs.
type Directory interface {
	// Me resolves the account that owns token. Any error means the token is unusable.
	Me(ctx context.Context, token string) (Account, error)

	// FindProfile returns the first employee whose user back-reference equals
	// accountDocumentID, or nil when none exists.
	FindProfile(ctx context.Context, token, accountDocumentID string) (*Profile, error)
}

// Storage is the durable key/value space for the persisted credentials.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}
