package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"notifer/internal/dispatch"
	"notifer/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dispatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.OpenFromConfig(cmd.Context(), cfg)
			if errors.Is(err, history.ErrDisabled) {
				fmt.Fprintln(cmd.OutOrStdout(), "History is disabled (history.enabled = false)")
				return nil
			}
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, historyJSON(entries))
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No dispatches recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistoryTable(entries))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Number of entries to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}

func renderHistoryTable(entries []history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Topic,
			e.Outcome.String(),
			stateLabel(e),
			strconv.Itoa(e.Priority),
			e.Duration().Round(time.Millisecond).String(),
			historyDetail(e),
		})
	}
	return renderTable(
		[]string{"Started", "Topic", "Outcome", "State", "Priority", "Took", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func stateLabel(e history.Entry) string {
	if e.Suppressed {
		return e.State.String() + " (suppressed)"
	}
	return e.State.String()
}

func historyDetail(e history.Entry) string {
	switch e.State {
	case dispatch.StateSucceeded:
		return "id " + e.ResponseID
	case dispatch.StateSkipped:
		return "disabled for outcome"
	}
	detail := e.Error
	if len(detail) > 60 {
		detail = detail[:57] + "..."
	}
	return strings.TrimSpace(e.ErrorKind + " " + detail)
}

type historyEntryJSON struct {
	InvocationID string `json:"invocation_id"`
	Topic        string `json:"topic"`
	Outcome      string `json:"outcome"`
	State        string `json:"state"`
	Priority     int    `json:"priority"`
	ResponseID   string `json:"response_id,omitempty"`
	StatusCode   int    `json:"status_code,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
	Error        string `json:"error,omitempty"`
	Suppressed   bool   `json:"suppressed"`
	StartedAt    string `json:"started_at"`
	DurationMS   int64  `json:"duration_ms"`
}

func historyJSON(entries []history.Entry) []historyEntryJSON {
	out := make([]historyEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryJSON{
			InvocationID: e.InvocationID,
			Topic:        e.Topic,
			Outcome:      e.Outcome.String(),
			State:        e.State.String(),
			Priority:     e.Priority,
			ResponseID:   e.ResponseID,
			StatusCode:   e.StatusCode,
			ErrorKind:    e.ErrorKind,
			Error:        e.Error,
			Suppressed:   e.Suppressed,
			StartedAt:    e.StartedAt.Format(time.RFC3339),
			DurationMS:   e.Duration().Milliseconds(),
		})
	}
	return out
}
