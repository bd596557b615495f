package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nutricoach/internal/profile"
	"nutricoach/internal/tavily"
)

var suggestDate string

// suggestCmd recommends the next meal
var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest a next meal within the remaining daily budget",
	Long: `Computes the remaining calorie and macro budget for the day, searches
the web for fitting meal ideas and asks the model for a concrete
suggestion. Needs a profile, targets and TAVILY_API_KEY.`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().StringVar(&suggestDate, "date", "", "Day to budget against as YYYY-MM-DD (default: today)")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	date, err := parseDateFlag(suggestDate, time.Now())
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	suggestion, err := a.SuggestMeal(cmd.Context(), date)
	if errors.Is(err, profile.ErrNoProfile) || errors.Is(err, profile.ErrNoTargets) {
		fmt.Println("I need your profile first. Run \"nutricoach profile set\" and try again.")
		return nil
	}
	if errors.Is(err, tavily.ErrNoAPIKey) {
		fmt.Println("Meal search needs a Tavily key. Set TAVILY_API_KEY and try again.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println(suggestion)
	return nil
}
