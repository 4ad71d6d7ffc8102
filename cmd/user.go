package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"power_schedule/internal/repository"
	"power_schedule/internal/repository/db"
	"power_schedule/internal/service"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a provisioned account; the password is read from stdin",
	Long: "Create an account that receives the permissions configured for its name " +
		"in auth.editors and auth.special_users. Accounts from /auth/sign-up never do.",
	Args: cobra.ExactArgs(1),
	RunE: runUserAdd,
}

func init() {
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	password, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && password == "" {
		return fmt.Errorf("read password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return errors.New("password is empty")
	}

	ctx := context.Background()
	database, err := db.InitDB(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	auth := service.NewAuthService(repository.NewUserRepository(database), authConfig(cfg))
	id, err := auth.Provision(ctx, args[0], password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s (id %d)\n", args[0], id)
	return err
}
