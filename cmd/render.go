package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"power_schedule/internal/client"
	"power_schedule/internal/config"
	"power_schedule/internal/matrix"
	"power_schedule/internal/render"
	"power_schedule/internal/repository"
	"power_schedule/internal/repository/db"

	"github.com/spf13/cobra"
)

var (
	renderOut    string
	renderRemote bool
)

var renderCmd = &cobra.Command{
	Use:   "render <schedule-id>",
	Short: "Write a schedule matrix as PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "schedule.png", "output file")
	renderCmd.Flags().BoolVar(&renderRemote, "remote", false, "fetch from remote.base_url instead of the local database")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid schedule id %q", args[0])
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	var img []byte
	if renderRemote {
		c := client.New(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout)
		img, err = c.MatrixPNG(ctx, id)
	} else {
		img, err = renderLocal(ctx, cfg, id)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(renderOut, img, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", renderOut, err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", renderOut, len(img))
	return err
}

func renderLocal(ctx context.Context, cfg *config.Config, id int) ([]byte, error) {
	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = database.Close() }()

	s, err := repository.NewScheduleSQLite(database).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("schedule %d not found", id)
	}
	m, err := matrix.Deserialize(s.Matrix)
	if err != nil {
		return nil, fmt.Errorf("schedule %d: %w", id, err)
	}
	return render.PNG(m, s.Name)
}
