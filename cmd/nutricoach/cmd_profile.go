package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nutricoach/internal/app"
	"nutricoach/internal/profile"
)

// Profile set flags
var (
	profileAge      int
	profileSex      string
	profileHeight   float64
	profileWeight   float64
	profileActivity string
	profileGoal     string
	profileExercise string
	profileDiet     string
	profileNote     string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the body profile and daily targets",
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update the profile and recompute targets",
	Long: `Sets profile fields and recomputes the daily calorie and macro targets
(Mifflin-St Jeor BMR, activity multiplier, goal adjustment). Only the
flags you pass change; everything else keeps its saved value, so a
weekly weigh-in is just:

  nutricoach profile set --weight 74.2

First-time setup needs the full picture:

  nutricoach profile set --age 30 --sex male --height 178 --weight 75 \
    --activity moderate --goal lose --exercise regular`,
	RunE: runProfileSet,
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved profile and targets",
	RunE:  runProfileShow,
}

var profileTargetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Recompute and show the daily targets",
	RunE:  runProfileTargets,
}

func init() {
	profileSetCmd.Flags().IntVar(&profileAge, "age", 0, "Age in years")
	profileSetCmd.Flags().StringVar(&profileSex, "sex", "", "Sex: male or female")
	profileSetCmd.Flags().Float64Var(&profileHeight, "height", 0, "Height in cm")
	profileSetCmd.Flags().Float64Var(&profileWeight, "weight", 0, "Weight in kg")
	profileSetCmd.Flags().StringVar(&profileActivity, "activity", "", "Activity level: sedentary, light, moderate, active, very_active")
	profileSetCmd.Flags().StringVar(&profileGoal, "goal", "", "Goal: lose, gain, maintain")
	profileSetCmd.Flags().StringVar(&profileExercise, "exercise", "", "Exercise level: none, light, regular")
	profileSetCmd.Flags().StringVar(&profileDiet, "diet", "", "Diet preference, e.g. korean, vegetarian")
	profileSetCmd.Flags().StringVar(&profileNote, "note", "", "Health note passed to the recommender")

	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileTargetsCmd)
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	store := profile.NewStore(cfg.DataDir)

	p := profile.Profile{}
	saved, err := store.LoadProfile()
	if err == nil {
		p = *saved
	} else if !errors.Is(err, profile.ErrNoProfile) {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("age") {
		p.Age = profileAge
	}
	if flags.Changed("sex") {
		p.Sex = profile.Sex(strings.ToLower(profileSex))
	}
	if flags.Changed("height") {
		p.HeightCm = profileHeight
	}
	if flags.Changed("weight") {
		p.WeightKg = profileWeight
	}
	if flags.Changed("activity") {
		p.ActivityLevel = profile.ActivityLevel(strings.ToLower(profileActivity))
	}
	if flags.Changed("goal") {
		p.Goal = profile.Goal(strings.ToLower(profileGoal))
	}
	if flags.Changed("exercise") {
		p.ExerciseLevel = profile.ExerciseLevel(strings.ToLower(profileExercise))
	}
	if flags.Changed("diet") {
		p.DietPreference = profileDiet
	}
	if flags.Changed("note") {
		p.HealthNote = profileNote
	}

	if err := p.Validate(); err != nil {
		return fmt.Errorf("profile incomplete: %w", err)
	}
	if err := store.SaveProfile(p); err != nil {
		return err
	}

	targets := profile.ComputeTargets(p)
	if err := store.SaveTargets(targets); err != nil {
		return err
	}

	fmt.Println("Profile saved.")
	fmt.Println()
	fmt.Print(app.RenderTargets(targets))
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	store := profile.NewStore(cfg.DataDir)

	p, err := store.LoadProfile()
	if errors.Is(err, profile.ErrNoProfile) {
		fmt.Println("No profile yet. Run \"nutricoach profile set\" to create one.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Print(app.RenderProfile(*p))
	if targets, terr := store.LoadTargets(); terr == nil {
		fmt.Println()
		fmt.Print(app.RenderTargets(*targets))
	}
	return nil
}

func runProfileTargets(cmd *cobra.Command, args []string) error {
	store := profile.NewStore(cfg.DataDir)

	p, err := store.LoadProfile()
	if errors.Is(err, profile.ErrNoProfile) {
		fmt.Println("No profile yet. Run \"nutricoach profile set\" to create one.")
		return nil
	}
	if err != nil {
		return err
	}

	targets := profile.ComputeTargets(*p)
	if err := store.SaveTargets(targets); err != nil {
		return err
	}
	fmt.Print(app.RenderTargets(targets))
	return nil
}
