package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/happyhackingspace/insincere"
	"github.com/happyhackingspace/insincere/internal/banner"
	"github.com/happyhackingspace/insincere/internal/config"
	"github.com/happyhackingspace/insincere/internal/corpus"
	"github.com/happyhackingspace/insincere/internal/runinfo"
	"github.com/happyhackingspace/insincere/internal/storage"
)

// CLI encapsulates the command-line interface with its dependencies.
type CLI struct {
	version     string
	verbose     bool
	silent      bool
	configPath  string
	initialized bool
	log         zerolog.Logger
	out         io.Writer
	newUpdater  func() (updater, error)
	rootCmd     *cobra.Command
}

// New creates a new CLI instance with the given version string.
func New(version string) *CLI {
	c := &CLI{version: version, log: zerolog.Nop(), out: os.Stdout, newUpdater: newReleaseUpdater}
	c.setupCommands()
	return c
}

// setupCommands initializes all CLI commands and their configurations.
func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:     "insincere",
		Short:   "Cross-validated recurrent classifier for insincere questions",
		Version: c.version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.initApp()
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	c.rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose/debug output")
	c.rootCmd.PersistentFlags().BoolVarP(&c.silent, "silent", "s", false, "Suppress all logging and banner")
	c.rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML config file")

	defaultHelp := c.rootCmd.HelpFunc()
	c.rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		c.initApp()
		defaultHelp(cmd, args)
	})

	c.rootCmd.AddCommand(c.newTrainCommand())
	c.rootCmd.AddCommand(c.newEvaluateCommand())
	c.rootCmd.AddCommand(c.newAlignCommand())
	c.rootCmd.AddCommand(c.newUpCommand())
}

// Run executes the CLI and returns any error. An interrupt cancels the
// running pipeline.
func (c *CLI) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.rootCmd.ExecuteContext(ctx)
}

// initApp initializes logging and prints the banner.
func (c *CLI) initApp() {
	if c.initialized {
		return
	}
	c.initialized = true

	level := zerolog.InfoLevel
	if c.verbose {
		level = zerolog.DebugLevel
	}
	if c.silent {
		level = zerolog.Disabled
	}
	c.log = runinfo.Console().Level(level)
	if !c.silent {
		fmt.Fprint(os.Stderr, banner.Banner(c.version))
	}
}

// addPipelineFlags registers the flags every pipeline command shares. Each
// flag maps onto the config key of the same name with dashes as underscores.
func addPipelineFlags(fs *pflag.FlagSet) {
	fs.String("data-dir", "data", "Folder holding train.csv, test.csv and embeddings")
	fs.String("train-file", storage.TrainFile, "Training CSV inside the data folder")
	fs.String("test-file", storage.TestFile, "Test CSV inside the data folder")
	fs.Int("train-size", 3000, "Training rows to read (0 reads all)")
	fs.Int("test-size", 0, "Test rows to read (0 reads all)")
	fs.Int("batch-size", 512, "Mini-batch size")
	fs.Int("embedding-dim", 600, "Width of a fresh embedding when not pretrained")
	fs.Int("num-epochs", 3, "Epochs per fold")
	fs.Float64("threshold", 0.5, "Decision cutoff on the fold-averaged votes")
	fs.Int("nsplits", 5, "Cross-validation folds")
	fs.Int("hidden-dim", 60, "Recurrent hidden size")
	fs.Float64("learning-rate", 0.001, "Adam learning rate")
	fs.Bool("bidirectional-status", true, "Run the recurrent layer in both directions")
	fs.String("rnntype", "LSTM", "Recurrent cell: LSTM, GRU or RNN")
	fs.Bool("pre-trained", true, "Use aligned pretrained embeddings")
	fs.Float64("dropout", 0.3, "Dropout before the output layer")
	fs.Uint64("seed", 1234, "Seed for folds, shuffling and initialisation")
	fs.String("checkpoint-dir", "", "Fold checkpoint folder (default: OS temp dir)")
}

// pipeline holds what a pipeline command needs once flags are parsed.
type pipeline struct {
	cfg      *config.Config
	opts     insincere.Options
	run      *runinfo.Run
	provider corpus.Provider
}

func (c *CLI) newPipeline(cmd *cobra.Command) (*pipeline, error) {
	cfg, err := config.Load(c.configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	opts, err := insincere.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	run := runinfo.New(c.log)
	store := storage.NewStorage(cfg.DataDir)
	store.TrainFile = cfg.TrainFile
	store.TestFile = cfg.TestFile
	run.Log.Debug().
		Str("data_dir", cfg.DataDir).
		Str("rnntype", cfg.RNNType).
		Int("nsplits", cfg.NSplits).
		Int("num_epochs", cfg.NumEpochs).
		Bool("pre_trained", cfg.PreTrained).
		Msg("configuration")
	return &pipeline{
		cfg:  cfg,
		opts: opts,
		run:  run,
		provider: &corpus.FileProvider{
			Storage:   store,
			TrainSize: cfg.TrainSize,
			TestSize:  cfg.TestSize,
			Log:       run.Log,
		},
	}, nil
}
