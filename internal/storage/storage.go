// Package storage reads the question corpus and writes submissions.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Default file names inside the data folder.
const (
	TrainFile = "train.csv"
	TestFile  = "test.csv"
)

// Column names.
const (
	colID    = "qid"
	colText  = "question_text"
	colLabel = "target"
)

// ErrColumn is returned when a required column is missing from the header.
var ErrColumn = errors.New("storage: missing column")

// Storage wraps the data folder.
type Storage struct {
	Folder    string
	TrainFile string
	TestFile  string
}

// NewStorage creates a Storage for the given data folder with the default
// file names.
func NewStorage(folder string) *Storage {
	return &Storage{Folder: folder, TrainFile: TrainFile, TestFile: TestFile}
}

// Question is one row of the corpus. Label is -1 for unlabeled rows.
type Question struct {
	ID    string
	Text  string
	Label int
}

// ReadTrain reads at most limit labeled questions (0 reads all).
func (s *Storage) ReadTrain(limit int) ([]Question, error) {
	return s.read(s.TrainFile, limit, true)
}

// ReadTest reads at most limit unlabeled questions (0 reads all).
func (s *Storage) ReadTest(limit int) ([]Question, error) {
	return s.read(s.TestFile, limit, false)
}

func (s *Storage) read(name string, limit int, labeled bool) ([]Question, error) {
	path := filepath.Join(s.Folder, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	defer f.Close()

	qs, err := ReadQuestions(f, limit, labeled)
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", path, err)
	}
	return qs, nil
}

// ReadQuestions parses a question CSV. The header locates the qid,
// question_text and (when labeled) target columns in any order.
func ReadQuestions(r io.Reader, limit int, labeled bool) ([]Question, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty file: %w", ErrColumn)
		}
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	need := []string{colID, colText}
	if labeled {
		need = append(need, colLabel)
	}
	for _, c := range need {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w %q", ErrColumn, c)
		}
	}

	var qs []Question
	for line := 2; limit <= 0 || len(qs) < limit; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		q := Question{Label: -1}
		if q.ID, err = field(rec, cols[colID], line); err != nil {
			return nil, err
		}
		if q.Text, err = field(rec, cols[colText], line); err != nil {
			return nil, err
		}
		if labeled {
			raw, err := field(rec, cols[colLabel], line)
			if err != nil {
				return nil, err
			}
			if q.Label, err = strconv.Atoi(strings.TrimSpace(raw)); err != nil {
				return nil, fmt.Errorf("line %d: label: %w", line, err)
			}
		}
		qs = append(qs, q)
	}
	return qs, nil
}

func field(rec []string, i, line int) (string, error) {
	if i >= len(rec) {
		return "", fmt.Errorf("line %d: %d fields, want at least %d", line, len(rec), i+1)
	}
	return rec[i], nil
}

// WriteSubmission writes a qid,prediction CSV. The file is written to a
// temporary sibling and renamed into place once every row is written.
func WriteSubmission(path string, ids []string, labels []int) error {
	if len(ids) != len(labels) {
		return fmt.Errorf("storage: %d ids for %d labels", len(ids), len(labels))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{colID, "prediction"})
	for i, id := range ids {
		_ = w.Write([]string{id, strconv.Itoa(labels[i])})
	}
	w.Flush()
	err = errors.Join(w.Error(), f.Close())
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("storage: write submission: %w", err)
	}
	return nil
}
