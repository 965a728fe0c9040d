package app

import (
	"context"
	"fmt"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/avatar"
	"github.com/roach88/petitions/internal/petition"
	"github.com/roach88/petitions/internal/validate"
)

// Register creates an account, logs it in and stores the session. A
// non-empty image becomes the profile picture.
//
// When the upload fails the account and session still exist; the returned
// session is valid alongside the error.
func (a *App) Register(ctx context.Context, form validate.Registration, image []byte) (petition.Session, error) {
	if err := validate.Register(form); err != nil {
		return petition.Session{}, err
	}
	var contentType string
	if len(image) > 0 {
		ct, err := validate.Image(image)
		if err != nil {
			return petition.Session{}, err
		}
		contentType = ct
	}

	if _, err := a.client.Register(ctx, api.Registration{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Password:  form.Password,
	}); err != nil {
		return petition.Session{}, err
	}
	sess, err := a.client.Login(ctx, api.Credentials{Email: form.Email, Password: form.Password})
	if err != nil {
		return petition.Session{}, fmt.Errorf("log in after registering: %w", err)
	}
	if err := a.store.SaveSession(ctx, sess); err != nil {
		return petition.Session{}, err
	}

	if contentType != "" {
		if err := a.client.PutUserImage(ctx, sess, sess.UserID, api.Image{Data: image, ContentType: contentType}); err != nil {
			return sess, fmt.Errorf("upload profile image: %w", err)
		}
	}
	return sess, nil
}

// Login authenticates and stores the session.
func (a *App) Login(ctx context.Context, form validate.Login) (petition.Session, error) {
	if err := validate.SignIn(form); err != nil {
		return petition.Session{}, err
	}
	sess, err := a.client.Login(ctx, api.Credentials{Email: form.Email, Password: form.Password})
	if err != nil {
		return petition.Session{}, err
	}
	if err := a.store.SaveSession(ctx, sess); err != nil {
		return petition.Session{}, err
	}
	return sess, nil
}

// Logout ends the stored session on the server and forgets it locally.
// The local session is cleared even when the server no longer recognises
// the token.
func (a *App) Logout(ctx context.Context) error {
	sess, err := a.store.LoadSession(ctx)
	if err != nil {
		return err
	}
	if !sess.LoggedIn() {
		return nil
	}

	remoteErr := a.client.Logout(ctx, sess)
	if err := a.store.ClearSession(ctx); err != nil {
		return err
	}
	if remoteErr != nil && !api.IsUnauthorized(remoteErr) {
		return remoteErr
	}
	return nil
}

// Profile is a user's account details and picture.
type Profile struct {
	User     petition.User
	Image    api.Image
	HasImage bool
}

// Profile fetches the session user's profile.
func (a *App) Profile(ctx context.Context, sess petition.Session) (Profile, error) {
	if err := requireLogin(sess); err != nil {
		return Profile{}, err
	}
	user, err := a.client.GetUser(ctx, sess, sess.UserID)
	if err != nil {
		return Profile{}, err
	}
	img, ok, err := a.fetchImage(ctx, func(ctx context.Context) (api.Image, error) {
		return a.client.GetUserImage(ctx, sess.UserID)
	})
	if err != nil {
		return Profile{}, fmt.Errorf("fetch profile image: %w", err)
	}
	return Profile{User: user, Image: img, HasImage: ok}, nil
}

// UpdateProfile applies account changes and sets the profile picture.
//
// With no image given, a user without a picture gets a default avatar
// showing the initial of their first name.
func (a *App) UpdateProfile(ctx context.Context, sess petition.Session, upd validate.ProfileUpdate, image []byte) error {
	if err := requireLogin(sess); err != nil {
		return err
	}
	if err := validate.Profile(upd); err != nil {
		return err
	}
	var contentType string
	if len(image) > 0 {
		ct, err := validate.Image(image)
		if err != nil {
			return err
		}
		contentType = ct
	}

	if !upd.Empty() {
		patch := api.UserPatch{
			FirstName: upd.FirstName,
			LastName:  upd.LastName,
			Email:     upd.Email,
		}
		if upd.Password != "" {
			patch.Password = upd.Password
			patch.CurrentPassword = upd.CurrentPassword
		}
		if err := a.client.UpdateUser(ctx, sess, sess.UserID, patch); err != nil {
			return err
		}
	}

	if contentType != "" {
		return a.client.PutUserImage(ctx, sess, sess.UserID, api.Image{Data: image, ContentType: contentType})
	}

	_, err := a.client.GetUserImage(ctx, sess.UserID)
	switch {
	case err == nil:
		return nil
	case !api.IsNotFound(err):
		return fmt.Errorf("check profile image: %w", err)
	}

	firstName := upd.FirstName
	if firstName == "" {
		user, err := a.client.GetUser(ctx, sess, sess.UserID)
		if err != nil {
			return err
		}
		firstName = user.FirstName
	}
	png, err := a.avatar(avatar.InitialOf(firstName))
	if err != nil {
		return fmt.Errorf("render default avatar: %w", err)
	}
	return a.client.PutUserImage(ctx, sess, sess.UserID, api.Image{Data: png, ContentType: avatar.ContentType})
}

// RemoveProfileImage deletes the session user's picture.
func (a *App) RemoveProfileImage(ctx context.Context, sess petition.Session) error {
	if err := requireLogin(sess); err != nil {
		return err
	}
	return a.client.DeleteUserImage(ctx, sess, sess.UserID)
}
