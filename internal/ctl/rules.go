package ctl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/noonaei/appsFlyer-hackathon/internal/aggregate"
	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and check risk rule tables",
	}
	cmd.AddCommand(newRulesValidateCmd())
	cmd.AddCommand(newRulesScoreCmd())
	return cmd
}

func newRulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Parse a rule table the way the service would on SIGHUP",
		Long:  "Parse and validate a rule table. Without a file the embedded default table is checked.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(); err != nil {
				return err
			}
			rs, err := loadRules(args)
			if err != nil {
				return err
			}
			if outputJSON() {
				return writeJSON(cmd, map[string]interface{}{
					"version":       rs.Version,
					"weakThreshold": rs.WeakThreshold,
					"categories":    rs.Categories(),
				})
			}
			title := cases.Title(language.English)
			fmt.Fprintf(cmd.OutOrStdout(), "OK: rule table %s (weak threshold %d)\n", rs.Version, rs.WeakThreshold)
			for _, r := range rs.Rules {
				label := title.String(strings.ReplaceAll(r.ID, "_", " "))
				fmt.Fprintf(cmd.OutOrStdout(), " - %-20s %-6s strong=%d weak=%d\n", label, r.Severity, len(r.Strong), len(r.Weak))
			}
			return nil
		},
	}
}

func newRulesScoreCmd() *cobra.Command {
	var rulesFile string
	cmd := &cobra.Command{
		Use:   "score <label>...",
		Short: "Score labels against a rule table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(); err != nil {
				return err
			}
			var paths []string
			if rulesFile != "" {
				paths = []string{rulesFile}
			}
			rs, err := loadRules(paths)
			if err != nil {
				return err
			}

			items := make([]aggregate.Aggregate, 0, len(args))
			for _, a := range args {
				items = append(items, aggregate.Aggregate{Label: a, Platform: "cli", TotalWeight: 1, Kind: "topic"})
			}
			found := risk.Score(rs, items, nil)

			if outputJSON() {
				return writeJSON(cmd, found)
			}
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matches")
				return nil
			}
			for _, c := range found {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", c.Item, c.Category, c.Severity, c.Evidence)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "rule table file (default: embedded table)")
	return cmd
}

func loadRules(args []string) (*risk.RuleSet, error) {
	if len(args) == 0 || args[0] == "" {
		return risk.DefaultRules(), nil
	}
	rs, err := risk.LoadRules(args[0])
	if err != nil {
		return nil, fmt.Errorf("load rules %s: %w", args[0], err)
	}
	return rs, nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
