package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/botforge/botforge/internal/config"
	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/models"
)

// NewBotsCmd creates the bots command group
func NewBotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bots",
		Short: "Inspect the local bot directory copy",
	}
	cmd.AddCommand(newBotsListCmd())
	cmd.AddCommand(newBotsSearchCmd())
	return cmd
}

func newBotsListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List locally synced bots",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := openBotRepository()
			if err != nil {
				return err
			}
			defer closeDB()

			bots, err := repo.List(context.Background(), limit, offset)
			if err != nil {
				return fmt.Errorf("failed to list bots: %w", err)
			}
			printBots(bots)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of bots to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of bots to skip")
	return cmd
}

func newBotsSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the local bot directory copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := openBotRepository()
			if err != nil {
				return err
			}
			defer closeDB()

			bots, err := repo.Search(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			printBots(bots)
			return nil
		},
	}
}

func printBots(bots []*models.Bot) {
	if len(bots) == 0 {
		fmt.Println("No bots found")
		return
	}
	for _, bot := range bots {
		fmt.Printf("%s  %s\n", bot.UUID, bot.Name)
		fmt.Printf("    by %s, %d up / %d down, %d users\n",
			bot.CreatedBy, bot.UserUpVotes, bot.UserDownVotes, bot.UsersCount)
		if len(bot.Tags) > 0 {
			fmt.Printf("    tags: %s\n", strings.Join(bot.Tags, ", "))
		}
	}
}

func openBotRepository() (*database.BotRepository, func(), error) {
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
	return database.NewBotRepository(db), closeDB, nil
}
