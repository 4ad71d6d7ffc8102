package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"power_schedule/internal/client"
	"power_schedule/internal/matrix"
	"power_schedule/internal/models"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var listSpecial bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules of a running server",
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listSpecial, "special", false, "include special schedules")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loader := client.NewLoader(client.New(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout), listSpecial)
	defer loader.Close()

	<-loader.Reload(context.Background())
	st := loader.State()
	if st.Err != "" {
		return errors.New(st.Err)
	}

	zones := lo.KeyBy(st.TimeZones, func(tz models.TimeZone) int { return tz.ID })
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tTIMEZONE\tON SLOTS\tSPECIAL")
	for _, s := range st.Schedules {
		on := "?"
		if m, err := matrix.Deserialize(s.Matrix); err == nil {
			on = fmt.Sprintf("%d/%d", m.CountOn(), matrix.Days*matrix.SlotsPerDay)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", s.ID, s.Name, zones[s.TimeZone].Name, on, s.IsSpecial)
	}
	return w.Flush()
}
