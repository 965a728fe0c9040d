package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/avatar"
	"github.com/roach88/petitions/internal/petition"
	"github.com/roach88/petitions/internal/retry"
	"github.com/roach88/petitions/internal/store"
)

// Flow errors raised before any API call.
var (
	ErrNotLoggedIn = errors.New("you must be logged in")
	ErrNotOwner    = errors.New("you are not the owner of this petition")
	ErrOwnPetition = errors.New("you cannot support your own petition")
	ErrNoSuchTier  = errors.New("support tier does not exist on this petition")
)

// Store is the local state the flows read and write. *store.Store
// implements it.
type Store interface {
	SaveSession(ctx context.Context, sess petition.Session) error
	LoadSession(ctx context.Context) (petition.Session, error)
	ClearSession(ctx context.Context) error
	RecordRun(ctx context.Context, run store.Run) error
	ListRuns(ctx context.Context, petitionID, limit int) ([]store.Run, error)
}

// IDGenerator names journal runs.
type IDGenerator interface {
	NewID() string
}

type uuidV7 struct{}

// NewID returns a time-ordered UUID.
func (uuidV7) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// App runs user flows against one API.
type App struct {
	client *api.Client
	store  Store
	logger *slog.Logger
	images retry.Policy
	avatar avatar.Func
	ids    IDGenerator
	now    func() time.Time
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger passed down to the reconciler.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithImageRetry sets the policy for fetching images.
func WithImageRetry(p retry.Policy) Option {
	return func(a *App) {
		a.images = p
	}
}

// WithAvatar replaces the default avatar renderer.
func WithAvatar(fn avatar.Func) Option {
	return func(a *App) {
		if fn != nil {
			a.avatar = fn
		}
	}
}

// WithIDGenerator sets how journal runs are named.
func WithIDGenerator(g IDGenerator) Option {
	return func(a *App) {
		if g != nil {
			a.ids = g
		}
	}
}

// WithClock sets the clock used for journal timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an App.
func New(client *api.Client, st Store, opts ...Option) *App {
	a := &App{
		client: client,
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		images: retry.ImagePolicy(),
		avatar: avatar.Default,
		ids:    uuidV7{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Session returns the stored session, zero when logged out.
func (a *App) Session(ctx context.Context) (petition.Session, error) {
	return a.store.LoadSession(ctx)
}

// Categories lists the petition categories.
func (a *App) Categories(ctx context.Context) ([]petition.Category, error) {
	return a.client.Categories(ctx)
}

func requireLogin(sess petition.Session) error {
	if !sess.LoggedIn() {
		return ErrNotLoggedIn
	}
	return nil
}

// fetchImage reads an image, retrying while the API reports it missing.
// A missing image after the last attempt is not an error.
func (a *App) fetchImage(ctx context.Context, get func(context.Context) (api.Image, error)) (api.Image, bool, error) {
	var img api.Image
	err := a.images.Do(ctx, api.IsNotFound, func(ctx context.Context) error {
		var err error
		img, err = get(ctx)
		return err
	})
	switch {
	case err == nil:
		return img, true, nil
	case api.IsNotFound(err):
		return api.Image{}, false, nil
	default:
		return api.Image{}, false, err
	}
}
