package cli

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

// featureSummary is one row of the train report.
type featureSummary struct {
	Name       string  `json:"name"`
	Question   string  `json:"question"`
	Importance float64 `json:"importance"`
}

// trainReport describes a freshly trained model.
type trainReport struct {
	Version    string           `json:"version"`
	TrainedAt  time.Time        `json:"trained_at"`
	Entities   int              `json:"entities"`
	Attributes int              `json:"attributes"`
	Depth      int              `json:"depth"`
	Leaves     int              `json:"leaves"`
	Features   []featureSummary `json:"features"`
}

func newTrainCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Retrain the model and report its shape",
		Long:  "Train rebuilds the decision tree from the stored dataset and prints its depth,\nleaf count and feature importances, most important first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.settings)
			if err != nil {
				return err
			}
			defer a.Close()

			mdl, err := a.coord.Retrain()
			if err != nil {
				return err
			}
			report := trainReport{
				Version:    mdl.Version,
				TrainedAt:  mdl.TrainedAt,
				Entities:   mdl.Matrix.Len(),
				Attributes: len(mdl.Features),
				Depth:      mdl.Tree.MaxDepth(),
				Leaves:     mdl.Tree.NumLeaves(),
			}
			for _, f := range mdl.Features {
				report.Features = append(report.Features, featureSummary{Name: f, Question: mdl.Question(f), Importance: mdl.Importance(f)})
			}
			slices.SortStableFunc(report.Features, func(a, b featureSummary) int {
				return cmp.Compare(b.Importance, a.Importance)
			})

			out := cmd.OutOrStdout()
			if opts.jsonMode {
				output, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal report: %w", err)
				}
				fmt.Fprintln(out, string(output))
				return nil
			}
			fmt.Fprintf(out, "model %s\n", report.Version)
			fmt.Fprintf(out, "entities: %d  attributes: %d  depth: %d  leaves: %d\n",
				report.Entities, report.Attributes, report.Depth, report.Leaves)
			for _, f := range report.Features {
				fmt.Fprintf(out, "  %-20s %.3f  %s\n", f.Name, f.Importance, f.Question)
			}
			return nil
		},
	}
}
