package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/botforge/botforge/cmd/botforgectl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "botforgectl",
		Short: "Admin tool for the botforge service",
		Long:  "CLI tool for inspecting preferences, the local bot directory and triggering syncs",
	}

	rootCmd.AddCommand(commands.NewPrefsCmd())
	rootCmd.AddCommand(commands.NewBotsCmd())
	rootCmd.AddCommand(commands.NewSyncCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
