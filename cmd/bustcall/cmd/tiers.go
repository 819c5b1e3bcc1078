package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/bustcall/internal/escalation"
	"github.com/psantana5/bustcall/internal/severity"
)

type tierRow struct {
	Tier     string `json:"tier"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Scores   string `json:"scores"`
	Action   string `json:"action"`
	ExitCode int    `json:"exit_code"`
}

func newTiersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "Show score ranges, tiers and their remediation",
		Long:  `Print the effective threshold table: the score range of each tier, the action it triggers and the resulting exit code.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			th, err := cfg.Thresholds.Severity()
			if err != nil {
				return &InvocationError{ExitCode: escalation.ExitPipelineFailure, Err: err}
			}
			return a.printTiers(tierRows(th))
		},
	}
}

func tierRows(th severity.Thresholds) []tierRow {
	var rows []tierRow
	for _, r := range th.Ranges() {
		action := severity.ActionFor(r.Tier)
		code := escalation.ExitOK
		if action.Restarts() {
			code = escalation.ExitRestart
		}
		rows = append(rows, tierRow{
			Tier:     r.Tier.String(),
			Min:      int(r.Min),
			Max:      int(r.Max),
			Scores:   r.String(),
			Action:   action.String(),
			ExitCode: code,
		})
	}
	return rows
}

func (a *app) printTiers(rows []tierRow) error {
	if a.jsonOutput() {
		output, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return ioFailure(fmt.Errorf("failed to marshal JSON: %w", err))
		}
		fmt.Fprintln(a.stdout, string(output))
		return nil
	}

	table := tablewriter.NewWriter(a.stdout)
	table.Header("Tier", "Scores", "Action", "Exit")
	for _, r := range rows {
		table.Append([]string{r.Tier, r.Scores, r.Action, fmt.Sprintf("%d", r.ExitCode)})
	}
	if err := table.Render(); err != nil {
		return ioFailure(err)
	}
	return nil
}
