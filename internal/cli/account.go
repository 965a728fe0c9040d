package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/app"
	"github.com/roach88/petitions/internal/petition"
	"github.com/roach88/petitions/internal/validate"
)

// readSecret returns value, or reads one line from stdin when it is empty.
func readSecret(cmd *cobra.Command, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readImage reads an image file; an empty path yields no image.
func readImage(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// currentSession loads the stored session and insists on one.
func (r *runtime) currentSession(cmd *cobra.Command) (petition.Session, error) {
	sess, err := r.app.Session(cmd.Context())
	if err != nil {
		return petition.Session{}, err
	}
	if !sess.LoggedIn() {
		return petition.Session{}, app.ErrNotLoggedIn
	}
	return sess, nil
}

type sessionView struct {
	UserID int `json:"userId"`
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var form validate.Registration
	var imagePath string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Long: `Create an account and log in with it.

The password is read from stdin when --password is not given.

Example:
  petitions register --first Ada --last Lovelace --email ada@example.com --image ada.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if form.Password, err = readSecret(cmd, form.Password, "Password"); err != nil {
				return rt.out.Fail(api.ActionRegister, err)
			}
			image, err := readImage(imagePath)
			if err != nil {
				_ = rt.out.Error(ErrCodeLocalFile, err.Error(), nil)
				return WrapExitError(ExitCommandError, "register", err)
			}

			sess, err := rt.app.Register(cmd.Context(), form, image)
			if err != nil && !sess.LoggedIn() {
				return rt.out.Fail(api.ActionRegister, err)
			}
			if err != nil {
				rt.logger.Warn("registered without profile image", "error", err)
			}
			return rt.out.Render(sessionView{UserID: sess.UserID}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Registered and logged in as user %d.\n", sess.UserID)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&form.FirstName, "first", "", "first name")
	cmd.Flags().StringVar(&form.LastName, "last", "", "last name")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (read from stdin when empty)")
	cmd.Flags().StringVar(&imagePath, "image", "", "profile image (jpeg, png or gif)")
	return cmd
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var form validate.Login

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if form.Password, err = readSecret(cmd, form.Password, "Password"); err != nil {
				return rt.out.Fail(api.ActionLogin, err)
			}
			sess, err := rt.app.Login(cmd.Context(), form)
			if err != nil {
				return rt.out.Fail(api.ActionLogin, err)
			}
			return rt.out.Render(sessionView{UserID: sess.UserID}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Logged in as user %d.\n", sess.UserID)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (read from stdin when empty)")
	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.app.Logout(cmd.Context()); err != nil {
				return rt.out.Fail("", err)
			}
			return rt.out.Success("Logged out.")
		},
	}
}

type profileView struct {
	User      petition.User `json:"user"`
	HasImage  bool          `json:"hasImage"`
	ImageType string        `json:"imageType,omitempty"`
	ImageSize int           `json:"imageSize,omitempty"`
}

func newProfileView(p app.Profile) profileView {
	v := profileView{User: p.User, HasImage: p.HasImage}
	if p.HasImage {
		v.ImageType = p.Image.ContentType
		v.ImageSize = len(p.Image.Data)
	}
	return v
}

func writeProfile(w io.Writer, v profileView) error {
	fmt.Fprintf(w, "%s (user %d)\n", v.User.Name(), v.User.ID)
	if v.User.Email != "" {
		fmt.Fprintf(w, "Email: %s\n", v.User.Email)
	}
	if v.HasImage {
		_, err := fmt.Fprintf(w, "Image: %s, %s\n", v.ImageType, humanize.IBytes(uint64(v.ImageSize)))
		return err
	}
	_, err := fmt.Fprintln(w, "Image: none")
	return err
}

func showProfile(cmd *cobra.Command, rootOpts *RootOptions, saveTo string) error {
	rt, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	sess, err := rt.currentSession(cmd)
	if err != nil {
		return rt.out.Fail(api.ActionProfile, err)
	}
	p, err := rt.app.Profile(cmd.Context(), sess)
	if err != nil {
		return rt.out.Fail(api.ActionProfile, err)
	}
	if saveTo != "" && p.HasImage {
		if err := os.WriteFile(saveTo, p.Image.Data, 0o644); err != nil {
			_ = rt.out.Error(ErrCodeLocalFile, err.Error(), nil)
			return WrapExitError(ExitCommandError, "save image", err)
		}
		rt.out.VerboseLog("saved profile image to %s", saveTo)
	}
	v := newProfileView(p)
	return rt.out.Render(v, func(w io.Writer) error { return writeProfile(w, v) })
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showProfile(cmd, rootOpts, "")
		},
	}
}

// NewProfileCommand creates the profile command and its subcommands.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your profile",
	}
	cmd.AddCommand(newProfileShowCommand(rootOpts))
	cmd.AddCommand(newProfileUpdateCommand(rootOpts))
	cmd.AddCommand(newProfileRemoveImageCommand(rootOpts))
	return cmd
}

func newProfileShowCommand(rootOpts *RootOptions) *cobra.Command {
	var saveTo string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showProfile(cmd, rootOpts, saveTo)
		},
	}
	cmd.Flags().StringVar(&saveTo, "save-image", "", "write the profile image to this file")
	return cmd
}

func newProfileUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var upd validate.ProfileUpdate
	var imagePath string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change account details or the profile image",
		Long: `Change account details or the profile image.

Only the given fields change. Without --image, an account that has no
profile image gets a default one showing the first letter of the first name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			sess, err := rt.currentSession(cmd)
			if err != nil {
				return rt.out.Fail(api.ActionProfile, err)
			}
			image, err := readImage(imagePath)
			if err != nil {
				_ = rt.out.Error(ErrCodeLocalFile, err.Error(), nil)
				return WrapExitError(ExitCommandError, "profile update", err)
			}
			if err := rt.app.UpdateProfile(cmd.Context(), sess, upd, image); err != nil {
				return rt.out.Fail(api.ActionProfile, err)
			}
			return rt.out.Success("Profile updated.")
		},
	}

	cmd.Flags().StringVar(&upd.FirstName, "first", "", "new first name")
	cmd.Flags().StringVar(&upd.LastName, "last", "", "new last name")
	cmd.Flags().StringVar(&upd.Email, "email", "", "new email address")
	cmd.Flags().StringVar(&upd.Password, "password", "", "new password")
	cmd.Flags().StringVar(&upd.CurrentPassword, "current-password", "", "current password, required with --password")
	cmd.Flags().StringVar(&imagePath, "image", "", "new profile image (jpeg, png or gif)")
	return cmd
}

func newProfileRemoveImageCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-image",
		Short: "Delete your profile image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			sess, err := rt.currentSession(cmd)
			if err != nil {
				return rt.out.Fail(api.ActionProfile, err)
			}
			if err := rt.app.RemoveProfileImage(cmd.Context(), sess); err != nil {
				return rt.out.Fail(api.ActionProfile, err)
			}
			return rt.out.Success("Profile image removed.")
		},
	}
}
