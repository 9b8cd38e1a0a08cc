// Package config loads run settings from defaults, an optional YAML file,
// INSINCERE_ environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/happyhackingspace/insincere/embedding"
	"github.com/happyhackingspace/insincere/rnn"
)

// EnvPrefix prefixes every environment override, e.g. INSINCERE_NUM_EPOCHS.
const EnvPrefix = "INSINCERE"

// Config is the full set of run settings.
type Config struct {
	DataDir   string `mapstructure:"data_dir"`
	TrainFile string `mapstructure:"train_file"`
	TestFile  string `mapstructure:"test_file"`
	Output    string `mapstructure:"output"`

	TrainSize int `mapstructure:"train_size"`
	TestSize  int `mapstructure:"test_size"`

	BatchSize     int     `mapstructure:"batch_size"`
	EmbeddingDim  int     `mapstructure:"embedding_dim"`
	NumEpochs     int     `mapstructure:"num_epochs"`
	Threshold     float64 `mapstructure:"threshold"`
	NSplits       int     `mapstructure:"nsplits"`
	HiddenDim     int     `mapstructure:"hidden_dim"`
	LearningRate  float64 `mapstructure:"learning_rate"`
	Bidirectional bool    `mapstructure:"bidirectional_status"`
	RNNType       string  `mapstructure:"rnntype"`
	PreTrained    bool    `mapstructure:"pre_trained"`
	Dropout       float64 `mapstructure:"dropout"`
	Seed          uint64  `mapstructure:"seed"`

	CheckpointDir string             `mapstructure:"checkpoint_dir"`
	Embeddings    []embedding.Source `mapstructure:"embeddings"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("train_file", "train.csv")
	v.SetDefault("test_file", "test.csv")
	v.SetDefault("output", "submission.csv")
	v.SetDefault("train_size", 3000)
	v.SetDefault("test_size", 0)
	v.SetDefault("batch_size", 512)
	v.SetDefault("embedding_dim", 600)
	v.SetDefault("num_epochs", 3)
	v.SetDefault("threshold", 0.5)
	v.SetDefault("nsplits", 5)
	v.SetDefault("hidden_dim", 60)
	v.SetDefault("learning_rate", 0.001)
	v.SetDefault("bidirectional_status", true)
	v.SetDefault("rnntype", "LSTM")
	v.SetDefault("pre_trained", true)
	v.SetDefault("dropout", 0.3)
	v.SetDefault("seed", 1234)
	v.SetDefault("checkpoint_dir", "")

	sources := embedding.DefaultSources()
	defs := make([]map[string]any, len(sources))
	for i, s := range sources {
		defs[i] = map[string]any{"name": s.Name, "path": s.Path, "mean": s.Mean, "std": s.Std}
	}
	v.SetDefault("embeddings", defs)
}

// Load builds a Config. An empty path skips the config file. Flags, when
// given, are bound by name with dashes read as underscores and take
// precedence over every other source once set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			bindErr = errors.Join(bindErr, v.BindPFlag(key, f))
		})
		if bindErr != nil {
			return nil, fmt.Errorf("config: bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings no run can use.
func (c *Config) Validate() error {
	if _, err := rnn.ParseCellKind(c.RNNType); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch {
	case c.NSplits < 2:
		return fmt.Errorf("config: nsplits must be at least 2, got %d", c.NSplits)
	case c.NumEpochs < 1:
		return fmt.Errorf("config: num_epochs must be positive, got %d", c.NumEpochs)
	case c.BatchSize < 1:
		return fmt.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	case c.HiddenDim < 1:
		return fmt.Errorf("config: hidden_dim must be positive, got %d", c.HiddenDim)
	case c.Threshold < 0 || c.Threshold > 1:
		return fmt.Errorf("config: threshold %v outside [0, 1]", c.Threshold)
	case c.Dropout < 0 || c.Dropout >= 1:
		return fmt.Errorf("config: dropout %v outside [0, 1)", c.Dropout)
	case c.LearningRate <= 0:
		return fmt.Errorf("config: learning_rate must be positive, got %v", c.LearningRate)
	case c.TrainSize < 0 || c.TestSize < 0:
		return fmt.Errorf("config: train_size and test_size must not be negative")
	case c.PreTrained && len(c.Embeddings) == 0:
		return fmt.Errorf("config: pre_trained needs at least one embedding source")
	case !c.PreTrained && c.EmbeddingDim < 1:
		return fmt.Errorf("config: embedding_dim must be positive, got %d", c.EmbeddingDim)
	}
	return nil
}

// EmbeddingSources returns the configured sources with relative paths
// resolved against the data folder.
func (c *Config) EmbeddingSources() []embedding.Source {
	out := make([]embedding.Source, len(c.Embeddings))
	for i, s := range c.Embeddings {
		if !filepath.IsAbs(s.Path) {
			s.Path = filepath.Join(c.DataDir, s.Path)
		}
		out[i] = s
	}
	return out
}
