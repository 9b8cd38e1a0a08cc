package cli

import (
	"github.com/spf13/cobra"

	"github.com/happyhackingspace/insincere"
)

func (c *CLI) newTrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Cross-validate on train.csv and write predictions for test.csv",
		Args:  cobra.NoArgs,
		Example: `  insincere train --data-dir data --output submission.csv
  insincere train --rnntype GRU --nsplits 3 -v
  insincere train --config insincere.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.newPipeline(cmd)
			if err != nil {
				return err
			}
			res, err := insincere.Run(cmd.Context(), p.run, p.provider, p.opts)
			if err != nil {
				return err
			}
			printFolds(c.out, res.Folds, res.MeanF1)
			if err := res.Write(p.cfg.Output); err != nil {
				return err
			}
			p.run.Log.Info().Str("path", p.cfg.Output).Int("rows", len(res.Labels)).Msg("submission written")
			return nil
		},
	}

	addPipelineFlags(cmd.Flags())
	cmd.Flags().String("output", "submission.csv", "Submission CSV to write")
	return cmd
}
