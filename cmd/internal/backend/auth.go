package backend

import (
	"context"
	"net/http"
	"strconv"
)

// Authenticate exchanges credentials for a bearer token.
func (c *Client) Authenticate(ctx context.Context, identifier, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, call{
		op:       "authenticate",
		method:   http.MethodPost,
		path:     "/api/auth/local",
		body:     map[string]string{"identifier": identifier, "password": password},
		fallback: "login failed",
	}, &out)
	return out, err
}

// Me returns the account owning token.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var out User
	err := c.do(ctx, call{
		op:       "me",
		method:   http.MethodGet,
		path:     "/api/users/me",
		token:    token,
		fallback: "failed to fetch current user",
	}, &out)
	return out, err
}

// FindEmployeeByUser returns the first employee whose user relation has
// userDocumentID, or nil when there is none.
func (c *Client) FindEmployeeByUser(ctx context.Context, token, userDocumentID string) (*Employee, error) {
	items, _, err := c.Employees.List(ctx, token, ListOptions{
		Filters: Eq(userDocumentID, "user", "documentId"),
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	e := items[0]
	return &e, nil
}

// Register creates a users-permissions account for an employee.
func (c *Client) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, call{
		op:       "register",
		method:   http.MethodPost,
		path:     "/api/auth/local/register",
		body:     in,
		fallback: "failed to create employee account",
	}, &out)
	return out, err
}

// UpdateUser changes the account with numeric id.
func (c *Client) UpdateUser(ctx context.Context, token string, id int, in UserUpdate) (User, error) {
	var out User
	err := c.do(ctx, call{
		op:       "update user",
		method:   http.MethodPut,
		path:     "/api/users/" + strconv.Itoa(id),
		token:    token,
		body:     in,
		fallback: "failed to update employee account",
	}, &out)
	return out, err
}
