package types

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// ReadTable loads a dataset from a file, choosing the format by extension:
// ".json" for a Census-style array of arrays, ".csv" for comma separated
// values, anything else for a |-delimited text export. Text cells are kept
// as strings.
func ReadTable(path string, headers []string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ReadJSONFile(path, headers)
	case ".csv":
		return readCSV(path, headers)
	default:
		return ReadDelimited(path, "|", headers)
	}
}

func readCSV(path string, headers []string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]any
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		rows = append(rows, stringRow(rec))
	}
	d, err := FromRows(rows, headers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ReadDelimited reads a text file with a header row and one record per line,
// fields separated by sep. Short lines are padded with empty strings.
func ReadDelimited(path, sep string, headers []string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024) // allow very long lines

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: file %s is empty", ErrValidation, path)
	}
	header := splitFields(scanner.Text(), sep)

	var lines []string
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// Pipeline: producer (line numbers) -> workers (CPU-bound parsing).
	// Each worker writes its own slots so row order is preserved.
	rows := make([][]any, len(lines)+1)
	rows[0] = stringRow(header)
	idx := make(chan int, 4096)

	workers := runtime.NumCPU()
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for n := range idx {
				cols := splitFields(lines[n], sep)
				for len(cols) < len(header) {
					cols = append(cols, "")
				}
				rows[n+1] = stringRow(cols)
			}
		}()
	}
	for n := range lines {
		idx <- n
	}
	close(idx)
	wg.Wait()

	d, err := FromRows(rows, headers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func splitFields(line, sep string) []string {
	cols := strings.Split(line, sep)
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols
}

func stringRow(cells []string) []any {
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
