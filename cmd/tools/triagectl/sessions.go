package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSessionsCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect recorded emergency sessions",
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sessions := a.recorder.List(cmd.Context())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sessions: %d\n", len(sessions))
			for _, s := range sessions {
				condition := s.LikelyCondition
				if condition == "" {
					condition = "-"
				}
				fmt.Fprintf(out, "%s  %s  %-10s  %s\n", s.ID, s.Timestamp.Format(time.RFC3339), s.Action, condition)
			}
			return nil
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate counts over recorded sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a.recorder.Stats(cmd.Context()))
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			a.recorder.Clear(cmd.Context())
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "sessions cleared")
			return err
		},
	}

	cmd.AddCommand(listCmd, statsCmd, clearCmd)
	return cmd
}
