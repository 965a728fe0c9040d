package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/roach88/petitions/internal/petition"
)

// Registration is the payload of POST /users/register.
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Credentials is the payload of POST /users/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserPatch is the payload of PATCH /users/{id}. Empty fields are omitted.
// Changing the password requires CurrentPassword.
type UserPatch struct {
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	Email           string `json:"email,omitempty"`
	Password        string `json:"password,omitempty"`
	CurrentPassword string `json:"currentPassword,omitempty"`
}

// Register creates an account and returns its user ID.
func (c *Client) Register(ctx context.Context, r Registration) (int, error) {
	var out struct {
		UserID int `json:"userId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/users/register", petition.Session{}, nil, r, &out); err != nil {
		return 0, err
	}
	return out.UserID, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, cr Credentials) (petition.Session, error) {
	var sess petition.Session
	if err := c.doJSON(ctx, http.MethodPost, "/users/login", petition.Session{}, nil, cr, &sess); err != nil {
		return petition.Session{}, err
	}
	if !sess.LoggedIn() {
		return petition.Session{}, fmt.Errorf("login: response carried no session")
	}
	return sess, nil
}

// Logout invalidates the session token on the server.
func (c *Client) Logout(ctx context.Context, sess petition.Session) error {
	return c.doJSON(ctx, http.MethodPost, "/users/logout", sess, nil, nil, nil)
}

// GetUser fetches a user. Email is only present when sess belongs to that user.
func (c *Client) GetUser(ctx context.Context, sess petition.Session, id int) (petition.User, error) {
	var u petition.User
	if err := c.doJSON(ctx, http.MethodGet, userPath(id), sess, nil, nil, &u); err != nil {
		return petition.User{}, err
	}
	u.ID = id
	return u, nil
}

// UpdateUser patches the session user's profile.
func (c *Client) UpdateUser(ctx context.Context, sess petition.Session, id int, p UserPatch) error {
	return c.doJSON(ctx, http.MethodPatch, userPath(id), sess, nil, p, nil)
}

// GetUserImage fetches a user's profile image.
func (c *Client) GetUserImage(ctx context.Context, id int) (Image, error) {
	return c.getImage(ctx, userPath(id)+"/image")
}

// PutUserImage replaces the session user's profile image.
func (c *Client) PutUserImage(ctx context.Context, sess petition.Session, id int, img Image) error {
	return c.putImage(ctx, sess, userPath(id)+"/image", img)
}

// DeleteUserImage removes the session user's profile image.
func (c *Client) DeleteUserImage(ctx context.Context, sess petition.Session, id int) error {
	return c.doJSON(ctx, http.MethodDelete, userPath(id)+"/image", sess, nil, nil, nil)
}

func userPath(id int) string {
	return fmt.Sprintf("/users/%d", id)
}
