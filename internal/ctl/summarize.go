package ctl

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/noonaei/appsFlyer-hackathon/internal/aggregate"
	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
	"github.com/noonaei/appsFlyer-hackathon/internal/summary"
	"github.com/noonaei/appsFlyer-hackathon/pkg/cache"
	"github.com/noonaei/appsFlyer-hackathon/pkg/validation"
)

func newSummarizeCmd() *cobra.Command {
	var (
		rulesFile string
		locale    string
		platforms []string
		topN      int
	)
	cmd := &cobra.Command{
		Use:   "summarize [file|-]",
		Short: "Build a template summary from a request body",
		Long: `Build a summary from a POST /api/ai/summary body without calling a
generative service. Reads stdin when the file is "-" or omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			req, err := summary.ParseRequest(body)
			if err != nil {
				if vs, ok := validation.Violations(err); ok {
					for _, v := range vs {
						fmt.Fprintf(cmd.ErrOrStderr(), "%v: %s\n", v.Path, v.Message)
					}
				}
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

			gen := summary.NewGenerator(summary.GeneratorConfig{
				Store:     cache.NewMemoryStore(cache.New(cache.Options{TTL: time.Minute}, cache.MetricsHooks{}), summary.Output.Clone),
				Templates: summary.TemplatesFor(locale),
			})
			pipeline := summary.NewPipeline(summary.PipelineConfig{
				Aggregator: aggregate.New(platforms),
				Scorer:     risk.NewScorer(rs),
				Generator:  gen,
				TopN:       topN,
				Locale:     locale,
			})
			o, err := pipeline.Build(context.Background(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, o.Output)
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "rule table file (default: embedded table)")
	cmd.Flags().StringVar(&locale, "locale", "en", "template locale: en|he")
	cmd.Flags().StringSliceVar(&platforms, "creator-as-topic", []string{"reddit", "instagram", "tiktok"}, "platforms whose creators count as topics")
	cmd.Flags().IntVar(&topN, "top", summary.DefaultTopN, "facts per partition")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return b, nil
}
