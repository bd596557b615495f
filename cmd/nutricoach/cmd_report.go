package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var reportDate string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a daily or weekly report",
}

var reportDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Report one day's intake against the targets",
	Long: `Sums the journal for one day, compares it against the daily targets and
adds coaching commentary. Defaults to today.

Example:
  nutricoach report daily --date 2026-08-20`,
	RunE: runReportDaily,
}

var reportWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Report the 7-day window ending on a date",
	Long: `Sums the journal over the 7 days ending on the given date (inclusive),
averages over the days that have entries and adds coaching commentary.
Defaults to the week ending today.`,
	RunE: runReportWeekly,
}

func init() {
	reportCmd.PersistentFlags().StringVar(&reportDate, "date", "", "Report date as YYYY-MM-DD (default: today)")

	reportCmd.AddCommand(reportDailyCmd)
	reportCmd.AddCommand(reportWeeklyCmd)
}

// parseDateFlag resolves a YYYY-MM-DD flag value, defaulting to now.
func parseDateFlag(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

func runReportDaily(cmd *cobra.Command, args []string) error {
	date, err := parseDateFlag(reportDate, time.Now())
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rendered, err := a.DailyReportFor(cmd.Context(), date)
	if err != nil {
		return err
	}
	fmt.Println(rendered)
	return nil
}

func runReportWeekly(cmd *cobra.Command, args []string) error {
	date, err := parseDateFlag(reportDate, time.Now())
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rendered, err := a.WeeklyReportFor(cmd.Context(), date)
	if err != nil {
		return err
	}
	fmt.Println(rendered)
	return nil
}
