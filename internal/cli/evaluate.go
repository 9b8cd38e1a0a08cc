package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/insincere"
	"github.com/happyhackingspace/insincere/classifier"
	"github.com/happyhackingspace/insincere/embedding"
)

func (c *CLI) newEvaluateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "evaluate",
		Short:   "Report per-fold validation F1 without predicting the test set",
		Args:    cobra.NoArgs,
		Example: `  insincere evaluate --data-dir data --nsplits 5 --num-epochs 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.newPipeline(cmd)
			if err != nil {
				return err
			}
			ev, err := insincere.Evaluate(cmd.Context(), p.run, p.provider, p.opts)
			if err != nil {
				return err
			}
			printFolds(c.out, ev.Folds, ev.MeanF1)
			return nil
		},
	}

	addPipelineFlags(cmd.Flags())
	return cmd
}

func (c *CLI) newAlignCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "align",
		Short:   "Report how much of the vocabulary each embedding file covers",
		Args:    cobra.NoArgs,
		Example: `  insincere align --data-dir data --train-size 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.newPipeline(cmd)
			if err != nil {
				return err
			}
			reports, err := insincere.AlignOnly(cmd.Context(), p.run, p.provider, p.opts)
			if err != nil {
				return err
			}
			printCoverage(c.out, reports)
			return nil
		},
	}

	addPipelineFlags(cmd.Flags())
	return cmd
}

func printFolds(w io.Writer, folds []classifier.FoldReport, meanF1 float64) {
	fmt.Fprintf(w, "%5s  %6s  %6s  %10s  %7s\n", "fold", "train", "valid", "best epoch", "f1")
	for _, f := range folds {
		fmt.Fprintf(w, "%5d  %6d  %6d  %10d  %6.2f%%\n", f.Fold, f.TrainSize, f.ValidSize, f.BestEpoch, f.BestF1*100)
	}
	fmt.Fprintf(w, "Mean macro F1: %.2f%%\n", meanF1*100)
}

func printCoverage(w io.Writer, reports []embedding.Report) {
	for _, r := range reports {
		fmt.Fprintf(w, "%s: %d/%d tokens (%.1f%%)\n", r.Source, r.Found, r.Total, r.Coverage()*100)
		transforms := make([]embedding.Transform, 0, len(r.ByTransform))
		for t := range r.ByTransform {
			transforms = append(transforms, t)
		}
		slices.Sort(transforms)
		for _, t := range transforms {
			fmt.Fprintf(w, "  %-10s %d\n", t, r.ByTransform[t])
		}
	}
}
