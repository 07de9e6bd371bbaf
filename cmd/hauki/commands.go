package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/spf13/cobra"

	"github.com/City-of-Helsinki/hauki-sub000/internal/export"
	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/importer"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			status, err := a.storage.MigrationStatus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %s, %d pending\n", status.CurrentVersion, status.PendingCount)
			return nil
		}),
	}
}

func newImportCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "import <file...>",
		Short: "Import resources and date periods from YAML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			results, err := a.imports.RunImporter(cmd.Context(), importer.NewFileSource("cli", args...), importer.Options{Force: force})
			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%s: resources %d created, %d updated, %d unchanged, %d deleted; periods %d created, %d updated, %d unchanged, %d deleted\n",
					r.DataSource,
					r.ResourcesCreated, r.ResourcesUpdated, r.ResourcesUnchanged, r.ResourcesDeleted,
					r.PeriodsCreated, r.PeriodsUpdated, r.PeriodsUnchanged, r.PeriodsDeleted,
				)
			}
			return err
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "allow deleting more than a fifth of a data source")
	return cmd
}

// dateFlags binds --start and --end, which accept relative dates.
type dateFlags struct {
	start string
	end   string
}

func (f *dateFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "today", "first date, e.g. 2020-10-12, today or -1w")
	cmd.Flags().StringVar(&f.end, "end", "+1w", "last date, e.g. 2020-10-18, today or +1m")
}

func (f *dateFlags) resolve(today civil.Date) (civil.Date, civil.Date, error) {
	start, err := hours.ParseMaybeRelativeDate(f.start, false, today)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := hours.ParseMaybeRelativeDate(f.end, true, today)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("invalid --end: %w", err)
	}
	return start, end, nil
}

func newOpeningHoursCmd(a *app) *cobra.Command {
	var dates dateFlags
	cmd := &cobra.Command{
		Use:   "opening-hours <resource|data_source:origin_id>",
		Short: "Print the daily opening hours of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			start, end, err := dates.resolve(a.openingHours.Today())
			if err != nil {
				return err
			}
			resource, err := a.openingHours.ResolveResource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			days, err := a.openingHours.OpeningHours(cmd.Context(), resource.ID, start, end)
			if err != nil {
				return err
			}
			writeDays(cmd.OutOrStdout(), days)
			return nil
		}),
	}
	dates.bind(cmd)
	return cmd
}

func newIsOpenNowCmd(a *app) *cobra.Command {
	var zone string
	cmd := &cobra.Command{
		Use:   "is-open-now <resource|data_source:origin_id>",
		Short: "Report whether a resource is open at this moment",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			var other *time.Location
			if zone != "" {
				loc, err := time.LoadLocation(zone)
				if err != nil {
					return fmt.Errorf("unknown timezone %q", zone)
				}
				other = loc
			}
			resource, err := a.openingHours.ResolveResource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			result, err := a.openingHours.IsOpenNow(cmd.Context(), resource.ID, other)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			state := "closed"
			if result.IsOpen {
				state = "open"
			}
			fmt.Fprintf(out, "%s is %s at %s\n", result.Resource.Name, state, result.Now.Format(time.RFC3339))
			for _, m := range result.Matches {
				fmt.Fprintf(out, "  %s\n", formatInterval(m))
			}
			for _, m := range result.OtherZone {
				fmt.Fprintf(out, "  %s (%s)\n", formatInterval(m), other)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&zone, "timezone", "", "also show the matching hours in this timezone")
	return cmd
}

func newRecomputeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute [resource...]",
		Short: "Recompute date period hashes and texts",
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			changed, err := a.denormalizer.RecomputeAll(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d resources changed\n", changed)
			return nil
		}),
	}
}

func newUpdateAncestryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update-ancestry [resource...]",
		Short: "Recompute the fields resources derive from their parents",
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			updated, err := a.resources.UpdateAncestry(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d resources updated\n", updated)
			return nil
		}),
	}
}

func newExportICSCmd(a *app) *cobra.Command {
	var (
		dates dateFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "export-ics <resource|data_source:origin_id>",
		Short: "Write the opening hours of a resource as an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			start, end, err := dates.resolve(a.openingHours.Today())
			if err != nil {
				return err
			}
			resource, err := a.openingHours.ResolveResource(ctx, args[0])
			if err != nil {
				return err
			}
			days, err := a.openingHours.OpeningHours(ctx, resource.ID, start, end)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = cerr
					}
				}()
				w = f
			}
			return export.WriteICS(w, resource, days)
		}),
	}
	dates.bind(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, stdout when empty")
	return cmd
}

func writeDays(w io.Writer, days hours.OpeningHours) {
	for _, day := range days {
		fmt.Fprintf(w, "%s %s\n", day.Date, day.Date.In(time.UTC).Weekday())
		for _, el := range day.Elements {
			fmt.Fprintf(w, "  %s\n", formatElement(el))
		}
	}
}

func formatElement(el hours.TimeElement) string {
	var b strings.Builder
	switch {
	case el.FullDay || el.HasNoTimes():
		b.WriteString("all day")
	default:
		b.WriteString(clock(el.StartTime, "00:00"))
		b.WriteString("-")
		b.WriteString(clock(el.EndTime, "24:00"))
		if el.EndTimeOnNextDay {
			b.WriteString(" (+1)")
		}
	}
	b.WriteString(" ")
	b.WriteString(el.State.Label())
	if el.Name != "" {
		b.WriteString(" (" + el.Name + ")")
	}
	return b.String()
}

func formatInterval(iv hours.Interval) string {
	return fmt.Sprintf("%s-%s %s", iv.Start.Format("2006-01-02 15:04"), iv.End.Format("15:04"), iv.Element.State.Label())
}

func clock(t *civil.Time, fallback string) string {
	if t == nil {
		return fallback
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
