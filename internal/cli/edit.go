package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/app"
	"github.com/roach88/petitions/internal/petition"
	"github.com/roach88/petitions/internal/tiers"
	"github.com/roach88/petitions/internal/validate"
)

type stepView struct {
	Op      string `json:"op"`
	TierID  int    `json:"tierId,omitempty"`
	Title   string `json:"title"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

type planView struct {
	PetitionID int                    `json:"petitionId"`
	Patch      api.PetitionPatch      `json:"patch"`
	Create     []petition.SupportTier `json:"create"`
	Update     []petition.SupportTier `json:"update"`
	Delete     []petition.SupportTier `json:"delete"`
}

type editView struct {
	Plan    planView   `json:"plan"`
	Patched bool       `json:"patched"`
	RunID   string     `json:"runId,omitempty"`
	Steps   []stepView `json:"steps"`
}

func newPlanView(id int, p app.EditPlan) planView {
	v := planView{
		PetitionID: id,
		Patch:      p.Patch,
		Create:     p.Tiers.Create,
		Delete:     p.Tiers.Delete,
	}
	for _, u := range p.Tiers.Update {
		v.Update = append(v.Update, u.After)
	}
	return v
}

func newStepViews(steps []tiers.Step) []stepView {
	out := make([]stepView, 0, len(steps))
	for _, s := range steps {
		v := stepView{Op: string(s.Kind), TierID: s.Tier.ID, Title: s.Tier.Title, Outcome: string(s.Outcome)}
		if s.Err != nil {
			v.Error = s.Err.Error()
		}
		out = append(out, v)
	}
	return out
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	var draftPath, imagePath string
	var dryRun bool
	var addTiers, setTiers []string
	var removeTiers []int

	cmd := &cobra.Command{
		Use:   "edit <petition-id> [-f <draft.yaml>] [tier flags]",
		Short: "Edit a petition you own from a draft file or tier flags",
		Long: `Edit a petition you own from a YAML draft file.

Tiers in the draft that carry an id update the existing tier with that id;
tiers without one are created; existing tiers the draft leaves out are
deleted. The petition always keeps between one and three tiers while the
changes are applied. Every tier edit is recorded; see "petitions history".

Tiers can also be changed one at a time, on top of the draft or of the
petition as it is now. Tier values are YAML flow mappings:

  petitions edit 4 --remove-tier 7 --add-tier '{title: Gold, description: A signed print, cost: 50}'
  petitions edit 4 --set-tier '{id: 8, title: Silver, description: A postcard, cost: 12}'

Use --dry-run to print the changes without making them.`,
		Args: cobra.ExactArgs(1),
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
				return rt.out.Fail(api.ActionEditPetition, err)
			}
			changes, err := tierChanges(addTiers, setTiers, removeTiers)
			if err != nil {
				_ = rt.out.Error(ErrCodeInput, err.Error(), nil)
				return WrapExitError(ExitFailure, "edit", err)
			}
			if draftPath == "" && changes.Empty() {
				msg := "nothing to edit: give a draft with -f or a tier flag"
				_ = rt.out.Error(ErrCodeInput, msg, nil)
				return NewExitError(ExitFailure, msg)
			}

			var draft validate.PetitionDraft
			if draftPath == "" {
				draft, err = rt.app.EditDraft(cmd.Context(), sess, id, changes)
				if err != nil {
					return rt.out.Fail(api.ActionEditPetition, err)
				}
			} else {
				if draft, err = loadDraft(draftPath); err != nil {
					return rt.localFileError(err)
				}
				if draft.Tiers, err = app.ChangeTiers(draft.Tiers, changes); err != nil {
					return rt.out.Fail(api.ActionEditPetition, err)
				}
			}

			if dryRun {
				plan, err := rt.app.PlanEdit(cmd.Context(), sess, id, draft)
				if err != nil {
					return rt.out.Fail(api.ActionEditPetition, err)
				}
				return rt.out.Render(newPlanView(id, plan), func(w io.Writer) error { return writePlan(w, plan) })
			}

			image, err := draftImage(draft, imagePath)
			if err != nil {
				return rt.localFileError(err)
			}
			res, err := rt.app.EditPetition(cmd.Context(), sess, id, draft, image)
			if err != nil {
				var stepErr *tiers.StepError
				if errors.As(err, &stepErr) && rt.out.Format == "text" {
					fmt.Fprintln(rt.out.Writer, "Applied before the failure:")
					_ = writeSteps(rt.out.Writer, res.Report.Steps)
				}
				return rt.out.Fail(api.ActionEditPetition, err)
			}

			v := editView{
				Plan:    newPlanView(id, res.Plan),
				Patched: res.Patched,
				RunID:   res.RunID,
				Steps:   newStepViews(res.Report.Steps),
			}
			return rt.out.Render(v, func(w io.Writer) error {
				if res.Plan.Empty() && len(image) == 0 {
					_, err := fmt.Fprintln(w, "Nothing to change.")
					return err
				}
				if err := writePlan(w, res.Plan); err != nil {
					return err
				}
				if len(res.Report.Steps) > 0 {
					fmt.Fprintln(w)
					if err := writeSteps(w, res.Report.Steps); err != nil {
						return err
					}
				}
				_, err := fmt.Fprintf(w, "Updated petition %d.\n", id)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&draftPath, "file", "f", "", "petition draft (YAML)")
	cmd.Flags().StringVar(&imagePath, "image", "", "new petition image, overriding the draft's")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the changes without making them")
	cmd.Flags().StringArrayVar(&addTiers, "add-tier", nil, "add a support tier (repeatable)")
	cmd.Flags().StringArrayVar(&setTiers, "set-tier", nil, "replace the support tier with the given id (repeatable)")
	cmd.Flags().IntSliceVar(&removeTiers, "remove-tier", nil, "remove the support tier with this id (repeatable)")
	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <petition-id>",
		Short: "Show recorded support tier edits of a petition",
		Long: `Show the support tier edits made to a petition from this machine,
newest first, with every step and the error that stopped a failed edit.`,
		Args: cobra.ExactArgs(1),
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

			runs, err := rt.app.History(cmd.Context(), id, limit)
			if err != nil {
				return rt.out.Fail("", err)
			}
			return rt.out.Render(runs, func(w io.Writer) error { return writeRuns(w, runs) })
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "most runs to show (0 for all)")
	return cmd
}
