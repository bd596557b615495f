package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nutricoach/internal/app"
	"nutricoach/internal/pipeline"
)

// logCmd records a single meal without entering chat
var logCmd = &cobra.Command{
	Use:   "log [meal description]",
	Short: "Record a meal in the food journal",
	Long: `Resolves a free-text meal description into nutrient totals and appends
them to the journal.

Example:
  nutricoach log "200g of brown rice and a grilled chicken breast"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	text := strings.Join(args, " ")
	result, err := a.LogMeal(cmd.Context(), text)
	if errors.Is(err, pipeline.ErrNoFood) {
		fmt.Println("No food items found in that description. Try something like \"200g of rice and a chicken breast\".")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println(app.RenderMeal(result))
	return nil
}
