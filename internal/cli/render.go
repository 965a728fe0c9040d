package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roach88/petitions/internal/app"
	"github.com/roach88/petitions/internal/petition"
	"github.com/roach88/petitions/internal/store"
	"github.com/roach88/petitions/internal/tiers"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// money renders a whole-dollar amount; zero reads as free.
func money(cost int) string {
	if cost == 0 {
		return "Free"
	}
	return "$" + humanize.Comma(int64(cost))
}

func date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2 Jan 2006")
}

func writeSummaries(w io.Writer, rows []petition.PetitionSummary, names map[int]string) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tOWNER\tSUPPORTERS\tFROM\tCREATED")
	for _, p := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Title, names[p.CategoryID], p.OwnerName(),
			humanize.Comma(int64(p.NumberOfSupporters)), money(p.SupportingCost), date(p.CreationDate))
	}
	return tw.Flush()
}

func writePage(w io.Writer, page app.Page) error {
	if len(page.Petitions) == 0 {
		_, err := fmt.Fprintln(w, "No petitions found.")
		return err
	}
	rows := make([]petition.PetitionSummary, len(page.Petitions))
	names := make(map[int]string, len(page.Petitions))
	for i, l := range page.Petitions {
		rows[i] = l.PetitionSummary
		names[l.CategoryID] = l.CategoryName
	}
	if err := writeSummaries(w, rows, names); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nPage %d of %d (%s %s)\n",
		page.Page, page.LastPage, humanize.Comma(int64(page.Total)), plural(page.Total, "petition"))
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func writeTiers(w io.Writer, ts []petition.SupportTier) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "TIER\tTITLE\tCOST\tDESCRIPTION")
	for _, t := range ts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, t.Title, money(t.Cost), t.Description)
	}
	return tw.Flush()
}

func writeDetails(w io.Writer, d app.Details) error {
	p := d.Petition
	fmt.Fprintf(w, "%s (petition %d)\n", p.Title, p.ID)
	fmt.Fprintf(w, "Category: %s\n", d.CategoryName)
	fmt.Fprintf(w, "Owner: %s\n", p.OwnerName())
	fmt.Fprintf(w, "Created: %s (%s)\n", date(p.CreationDate), humanize.Time(p.CreationDate))
	fmt.Fprintf(w, "Supporters: %s, raised %s\n\n", humanize.Comma(int64(p.NumberOfSupporters)), money(p.MoneyRaised))
	fmt.Fprintf(w, "%s\n\n", p.Description)

	if err := writeTiers(w, p.SupportTiers); err != nil {
		return err
	}

	if len(d.Supporters) > 0 {
		fmt.Fprintln(w, "\nSupporters:")
		tw := newTable(w)
		for _, s := range d.Supporters {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", s.Name(), s.TierTitle, humanize.Time(s.Timestamp), s.Message)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(d.Similar) > 0 {
		fmt.Fprintln(w, "\nSimilar petitions:")
		for _, s := range d.Similar {
			fmt.Fprintf(w, "  %d  %s (%s)\n", s.ID, s.Title, s.OwnerName())
		}
	}
	return nil
}

func writePlan(w io.Writer, plan app.EditPlan) error {
	if plan.Empty() {
		_, err := fmt.Fprintln(w, "Nothing to change.")
		return err
	}
	if plan.Patch.Title != nil {
		fmt.Fprintf(w, "title: %q -> %q\n", plan.Baseline.Title, *plan.Patch.Title)
	}
	if plan.Patch.Description != nil {
		fmt.Fprintln(w, "description: changed")
	}
	if plan.Patch.CategoryID != nil {
		fmt.Fprintf(w, "category: %d -> %d\n", plan.Baseline.CategoryID, *plan.Patch.CategoryID)
	}
	for _, u := range plan.Tiers.Update {
		fmt.Fprintf(w, "update tier %d: %s (%s) -> %s (%s)\n",
			u.Before.ID, u.Before.Title, money(u.Before.Cost), u.After.Title, money(u.After.Cost))
	}
	for _, t := range plan.Tiers.Delete {
		fmt.Fprintf(w, "delete tier %d: %s\n", t.ID, t.Title)
	}
	for _, t := range plan.Tiers.Create {
		fmt.Fprintf(w, "create tier: %s (%s)\n", t.Title, money(t.Cost))
	}
	return nil
}

func writeSteps(w io.Writer, steps []tiers.Step) error {
	tw := newTable(w)
	for i, s := range steps {
		line := fmt.Sprintf("%d\t%s\t%s\t%s", i+1, s.Kind, s.Tier.Title, s.Outcome)
		if s.Err != nil {
			line += "\t" + s.Err.Error()
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

func writeRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No support tier edits recorded.")
		return err
	}
	for _, r := range runs {
		status := "ok"
		if !r.Succeeded() {
			status = "failed: " + r.Err
		}
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), humanize.Time(r.StartedAt), status)
		tw := newTable(w)
		for _, s := range r.Steps {
			line := fmt.Sprintf("  %s\t%d\t%s\t%s", s.Kind, s.TierID, s.Title, s.Outcome)
			if s.Error != "" {
				line += "\t" + s.Error
			}
			fmt.Fprintln(tw, line)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
