package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var train strings.Builder
	train.WriteString("qid,question_text,target\n")
	for i := range 10 {
		if i%2 == 0 {
			fmt.Fprintf(&train, "k%d,How do plants grow?,0\n", i)
		} else {
			fmt.Fprintf(&train, "s%d,Why are they all idiots?,1\n", i)
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.csv"), []byte(train.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.csv"),
		[]byte("qid,question_text\nt1,How do trees grow?\nt2,Are they idiots?\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.txt"),
		[]byte("grow 1 0 0\nplants 0 1 0\nidiots 0 0 1\n"), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New("test")
	var out bytes.Buffer
	c.out = &out
	c.rootCmd.SetArgs(append(args, "-s"))
	err := c.rootCmd.Execute()
	return out.String(), err
}

func smallRun(dir string) []string {
	return []string{
		"--data-dir", dir,
		"--nsplits", "5",
		"--num-epochs", "1",
		"--batch-size", "4",
		"--hidden-dim", "3",
		"--checkpoint-dir", filepath.Join(dir, "ckpt"),
	}
}

func TestTrainCommand(t *testing.T) {
	dir := writeData(t)
	out := filepath.Join(dir, "submission.csv")
	args := append([]string{"train", "--pre-trained=false", "--embedding-dim", "4", "--rnntype", "gru", "--output", out}, smallRun(dir)...)

	stdout, err := execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Mean macro F1")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "qid,prediction", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "t1,"))
}

func TestAlignCommand(t *testing.T) {
	dir := writeData(t)
	cfg := filepath.Join(dir, "insincere.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("embeddings:\n  - name: tiny\n    path: tiny.txt\n    mean: 0\n    std: 0.1\n"), 0o644))

	stdout, err := execute(t, "align", "--config", cfg, "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "tiny:")
	assert.Contains(t, stdout, "exact")
}

func TestEvaluateCommand(t *testing.T) {
	dir := writeData(t)
	args := append([]string{"evaluate", "--pre-trained=false", "--embedding-dim", "4", "--rnntype", "RNN"}, smallRun(dir)...)

	stdout, err := execute(t, args...)
	require.NoError(t, err)
	assert.Equal(t, 7, strings.Count(stdout, "\n"))
}

func TestBadConfig(t *testing.T) {
	dir := writeData(t)
	_, err := execute(t, "train", "--data-dir", dir, "--rnntype", "transformer")
	assert.Error(t, err)
}
