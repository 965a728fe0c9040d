package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/petition"
)

// petitionID parses a positional petition ID.
func (o *RootOptions) petitionID(cmd *cobra.Command, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		msg := fmt.Sprintf("invalid petition id %q", arg)
		_ = o.formatter(cmd).Error(ErrCodeInput, msg, nil)
		return 0, NewExitError(ExitFailure, msg)
	}
	return id, nil
}

// localFileError reports a draft or image that could not be read.
func (r *runtime) localFileError(err error) error {
	_ = r.out.Error(ErrCodeLocalFile, err.Error(), nil)
	return WrapExitError(ExitCommandError, "read local file", err)
}

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List petition categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			cats, err := rt.app.Categories(cmd.Context())
			if err != nil {
				return rt.out.Fail(api.ActionBrowse, err)
			}
			return rt.out.Render(cats, func(w io.Writer) error {
				tw := newTable(w)
				fmt.Fprintln(tw, "ID\tNAME")
				for _, c := range cats {
					fmt.Fprintf(tw, "%d\t%s\n", c.ID, c.Name)
				}
				return tw.Flush()
			})
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var q api.Query
	var sort string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Browse and search petitions",
		Long: `Browse and search petitions one page at a time.

Example:
  petitions list -q kakapo --category 1 --category 3 --max-cost 20 --sort COST_ASC --page 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if q.SortBy, err = api.ParseSort(sort); err != nil {
				_ = rt.out.Error(ErrCodeInput, err.Error(), nil)
				return WrapExitError(ExitFailure, "list", err)
			}
			if q.PageSize == 0 {
				q.PageSize = rt.cfg.List.PageSize
			}
			page, err := rt.app.BrowsePetitions(cmd.Context(), q)
			if err != nil {
				return rt.out.Fail(api.ActionBrowse, err)
			}
			return rt.out.Render(page, func(w io.Writer) error { return writePage(w, page) })
		},
	}

	cmd.Flags().StringVarP(&q.Search, "search", "q", "", "search titles and descriptions")
	cmd.Flags().IntSliceVar(&q.CategoryIDs, "category", nil, "category ID (repeatable)")
	cmd.Flags().IntVar(&q.MaxCost, "max-cost", 0, "only petitions supportable for at most this much")
	cmd.Flags().IntVar(&q.OwnerID, "owner", 0, "only petitions owned by this user")
	cmd.Flags().IntVar(&q.SupporterID, "supporter", 0, "only petitions supported by this user")
	cmd.Flags().StringVar(&sort, "sort", "", "sort order (default CREATED_ASC)")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PageSize, "page-size", 0, "petitions per page (default from config)")
	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <petition-id>",
		Short: "Show a petition with its supporters and similar petitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := rootOpts.petitionID(cmd, args[0])
			if err != nil {
				return err
			}
			rt, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			d, err := rt.app.PetitionDetails(cmd.Context(), id)
			if err != nil {
				return rt.out.Fail(api.ActionBrowse, err)
			}
			return rt.out.Render(d, func(w io.Writer) error { return writeDetails(w, d) })
		},
	}
}

type createdView struct {
	PetitionID int `json:"petitionId"`
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var draftPath, imagePath string

	cmd := &cobra.Command{
		Use:   "create -f <draft.yaml>",
		Short: "Create a petition from a draft file",
		Long: `Create a petition from a YAML draft file.

The draft names the title, description, category, image and between one
and three support tiers. An image is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			sess, err := rt.currentSession(cmd)
			if err != nil {
				return rt.out.Fail(api.ActionCreatePetition, err)
			}
			draft, err := loadDraft(draftPath)
			if err != nil {
				return rt.localFileError(err)
			}
			image, err := draftImage(draft, imagePath)
			if err != nil {
				return rt.localFileError(err)
			}

			id, err := rt.app.CreatePetition(cmd.Context(), sess, draft, image)
			if err != nil && id == 0 {
				return rt.out.Fail(api.ActionCreatePetition, err)
			}
			if err != nil {
				rt.logger.Warn("petition created without image", "petition_id", id, "error", err)
			}
			return rt.out.Render(createdView{PetitionID: id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Created petition %d.\n", id)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&draftPath, "file", "f", "", "petition draft (YAML)")
	cmd.Flags().StringVar(&imagePath, "image", "", "petition image, overriding the draft's")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <petition-id>",
		Short: "Delete a petition you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := rootOpts.petitionID(cmd, args[0])
			if err != nil {
				return err
			}
			rt, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			sess, err := rt.currentSession(cmd)
			if err != nil {
				return rt.out.Fail(api.ActionDeletePetition, err)
			}
			if err := rt.app.DeletePetition(cmd.Context(), sess, id); err != nil {
				return rt.out.Fail(api.ActionDeletePetition, err)
			}
			return rt.out.Success(fmt.Sprintf("Deleted petition %d.", id))
		},
	}
}

// NewMineCommand creates the mine command.
func NewMineCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List petitions you own or support",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			sess, err := rt.currentSession(cmd)
			if err != nil {
				return rt.out.Fail(api.ActionBrowse, err)
			}
			mine, err := rt.app.MyPetitions(cmd.Context(), sess)
			if err != nil {
				return rt.out.Fail(api.ActionBrowse, err)
			}
			cats, err := rt.app.Categories(cmd.Context())
			if err != nil {
				return rt.out.Fail(api.ActionBrowse, err)
			}
			all := mine.All()
			return rt.out.Render(all, func(w io.Writer) error {
				if len(all) == 0 {
					_, err := fmt.Fprintln(w, "You have no petitions yet.")
					return err
				}
				return writeSummaries(w, all, petition.CategoryNames(cats))
			})
		},
	}
}

// NewSupportCommand creates the support command.
func NewSupportCommand(rootOpts *RootOptions) *cobra.Command {
	var tierID int
	var message string

	cmd := &cobra.Command{
		Use:   "support <petition-id> --tier <tier-id>",
		Short: "Support a petition at one of its tiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := rootOpts.petitionID(cmd, args[0])
			if err != nil {
				return err
			}
			rt, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			sess, err := rt.currentSession(cmd)
			if err != nil {
				return rt.out.Fail(api.ActionSupport, err)
			}
			if err := rt.app.SupportPetition(cmd.Context(), sess, id, tierID, message); err != nil {
				return rt.out.Fail(api.ActionSupport, err)
			}
			return rt.out.Success(fmt.Sprintf("Supported petition %d.", id))
		},
	}

	cmd.Flags().IntVar(&tierID, "tier", 0, "support tier ID")
	cmd.Flags().StringVar(&message, "message", "", "optional message to the owner")
	_ = cmd.MarkFlagRequired("tier")
	return cmd
}
