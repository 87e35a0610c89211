package hospital

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var requiredColumns = []string{"hospital_name", "district", "state"}

// LoadCSVFile reads the hospital dataset at path.
func LoadCSVFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hospital dataset: %w", err)
	}
	defer f.Close()

	dir, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return dir, nil
}

// LoadCSV parses a header-led CSV with hospital_name, district and state
// columns. Column order is free and extra columns are ignored.
func LoadCSV(r io.Reader) (*Directory, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("hospital dataset has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		index[strings.TrimSpace(col)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("hospital dataset missing column %q", col)
		}
	}

	var hospitals []Hospital
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		hospitals = append(hospitals, Hospital{
			Name:     record[index["hospital_name"]],
			District: record[index["district"]],
			State:    record[index["state"]],
		})
	}

	return NewDirectory(hospitals), nil
}
