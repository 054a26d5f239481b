package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/botforge/botforge/internal/config"
	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/models"
	"github.com/botforge/botforge/internal/validation"
)

// NewPrefsCmd creates the prefs command group
func NewPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect and change preferences",
	}
	cmd.AddCommand(newPrefsGetCmd())
	cmd.AddCommand(newPrefsSetCmd())
	return cmd
}

func newPrefsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the current preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeDB, err := openPreferenceStore()
			if err != nil {
				return err
			}
			defer closeDB()

			prefs, err := store.Preferences(context.Background())
			if err != nil {
				return fmt.Errorf("failed to load preferences: %w", err)
			}

			fmt.Printf("theme: %s\n", prefs.Theme)
			fmt.Printf("use_dynamic_colors: %t\n", prefs.UseDynamicColors)
			fmt.Printf("enable_user_generated_content: %t\n", prefs.EnableUserGeneratedContent)
			fmt.Printf("enable_shake_to_clear: %t\n", prefs.EnableShakeToClear)
			fmt.Printf("shake_to_clear_sensitivity: %g\n", prefs.ShakeToClearSensitivity)
			if prefs.LastSuccessfulSync.IsZero() {
				fmt.Println("last_successful_sync: never")
			} else {
				fmt.Printf("last_successful_sync: %s\n", prefs.LastSuccessfulSync)
			}
			return nil
		},
	}
}

func newPrefsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a preference",
		Long:  "Set one of: theme, use_dynamic_colors, enable_user_generated_content, enable_shake_to_clear, shake_to_clear_sensitivity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeDB, err := openPreferenceStore()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := context.Background()
			key, value := args[0], args[1]
			switch key {
			case "theme":
				if err := validation.ValidateTheme(value); err != nil {
					return err
				}
				return store.SetTheme(ctx, models.Theme(value))
			case "use_dynamic_colors":
				b, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("invalid boolean %q: %w", value, err)
				}
				return store.SetUseDynamicColors(ctx, b)
			case "enable_user_generated_content":
				b, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("invalid boolean %q: %w", value, err)
				}
				return store.SetEnableUserGeneratedContent(ctx, b)
			case "enable_shake_to_clear":
				b, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("invalid boolean %q: %w", value, err)
				}
				return store.SetEnableShakeToClear(ctx, b)
			case "shake_to_clear_sensitivity":
				f, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return fmt.Errorf("invalid number %q: %w", value, err)
				}
				return store.SetShakeToClearSensitivity(ctx, f)
			default:
				return fmt.Errorf("unknown preference key %q", key)
			}
		},
	}
}

func openPreferenceStore() (*database.PreferenceStore, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}
	return database.NewPreferenceStore(db), closeDB, nil
}
