package app

import (
	"context"

	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/backend"
)

// directory resolves session identities through the backend client.
type directory struct {
	api *backend.Client
}

func (d directory) Me(ctx context.Context, token string) (session.Account, error) {
	u, err := d.api.Me(ctx, token)
	if err != nil {
		return session.Account{}, err
	}
	return session.Account{
		ID:         u.ID,
		DocumentID: u.DocumentID,
		Username:   u.Username,
		Email:      u.Email,
		Confirmed:  u.Confirmed,
		Blocked:    u.Blocked,
	}, nil
}

func (d directory) FindProfile(ctx context.Context, token, accountDocumentID string) (*session.Profile, error) {
	e, err := d.api.FindEmployeeByUser(ctx, token, accountDocumentID)
	if err != nil || e == nil {
		return nil, err
	}
	p := &session.Profile{
		ID:         e.ID,
		DocumentID: e.DocumentID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Position:   e.Position,
	}
	if e.User != nil {
		p.Email = e.User.Email
	}
	if e.Picture != nil {
		p.PictureURL = e.Picture.URL
	}
	return p, nil
}
