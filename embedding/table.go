package embedding

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrDimension is returned for a row whose width disagrees with the first row.
var ErrDimension = errors.New("embedding: row width mismatch")

// Table is a token to vector lookup loaded from a pretrained embedding file.
type Table struct {
	Dim     int
	Vectors map[string][]float64
}

// Lookup returns the vector for token.
func (t *Table) Lookup(token string) ([]float64, bool) {
	v, ok := t.Vectors[token]
	return v, ok
}

// LoadTableFile opens path and loads it with LoadTable.
func LoadTableFile(path string, keep func(string) bool) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	defer f.Close()

	table, err := LoadTable(f, keep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// LoadTable reads "<token> <f1> ... <fd>" lines. The first non-empty row fixes
// the dimension d; a row with more fields has its leading fields joined back
// into the token. Invalid UTF-8 bytes are dropped. When keep is non-nil only
// rows whose token it accepts are parsed and stored.
func LoadTable(r io.Reader, keep func(string) bool) (*Table, error) {
	table := &Table{Vectors: make(map[string][]float64)}
	br := bufio.NewReaderSize(r, 1<<20)

	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("embedding: read line %d: %w", lineNo+1, err)
		}
		if line == "" && errors.Is(err, io.EOF) {
			break
		}
		lineNo++

		line = strings.ToValidUTF8(strings.TrimRight(line, " \r\n"), "")
		if line != "" {
			if perr := table.addRow(line, lineNo, keep); perr != nil {
				return nil, perr
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}

	if table.Dim == 0 {
		return nil, fmt.Errorf("embedding: no vectors found")
	}
	return table, nil
}

func (t *Table) addRow(line string, lineNo int, keep func(string) bool) error {
	fields := strings.Split(line, " ")
	if t.Dim == 0 {
		if len(fields) < 2 {
			return fmt.Errorf("%w: line %d has no vector", ErrDimension, lineNo)
		}
		t.Dim = len(fields) - 1
	}
	if len(fields) < t.Dim+1 {
		return fmt.Errorf("%w: line %d has %d values, want %d", ErrDimension, lineNo, len(fields)-1, t.Dim)
	}

	split := len(fields) - t.Dim
	token := strings.Join(fields[:split], " ")
	if keep != nil && !keep(token) {
		return nil
	}

	vec := make([]float64, t.Dim)
	for i, f := range fields[split:] {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return fmt.Errorf("embedding: line %d: %w", lineNo, err)
		}
		vec[i] = v
	}
	t.Vectors[token] = vec
	return nil
}
