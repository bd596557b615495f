package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

// chatCmd starts the interactive chat loop
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat interface",
	Long: `Starts a conversational loop. Each message is classified by intent and
dispatched: profile setup, meal recording, meal recommendation, or a
report. Type "exit" or "quit" to leave.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nGoodbye!")
		_ = a.Close()
		os.Exit(0)
	}()

	fmt.Println("Welcome to nutricoach!")
	fmt.Println()
	fmt.Println("Things you can say:")
	fmt.Println("  profile:   \"I'm 30, male, 178cm, 75kg, moderately active, want to lose weight\"")
	fmt.Println("  meals:     \"I ate 200g of rice and a grilled chicken breast\"")
	fmt.Println("  ideas:     \"what should I have for dinner?\"")
	fmt.Println("  reports:   \"how did I do today?\" or \"weekly report\"")
	fmt.Println()
	fmt.Println("Type \"exit\" or \"quit\" to leave.")

	ctx := cmd.Context()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if lower := strings.ToLower(line); lower == "exit" || lower == "quit" {
			break
		}

		reply, err := a.Chat(ctx, line)
		if err != nil {
			fmt.Printf("Something went wrong: %v\nPlease try again.\n", err)
			continue
		}
		fmt.Println(reply)
	}

	fmt.Println("\nGoodbye!")
	return scanner.Err()
}
