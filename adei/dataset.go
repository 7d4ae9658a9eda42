package adei

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadDataset loads a JSON dataset file into country records. Null entries in
// the array are dropped so datasets written by older tooling (which emitted
// null for failed extractions) still load. Records are returned as stored;
// callers that need integrity guarantees run Validate per record.
func ReadDataset(path string) ([]CountryData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}

	// Unmarshal through pointers so JSON nulls become nil entries we can skip.
	var entries []*CountryData
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", path, err)
	}

	records := make([]CountryData, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		records = append(records, *entry)
	}
	return records, nil
}

// WriteDataset writes country records to path as a pretty-printed JSON array,
// creating parent directories as needed. The file is written atomically via a
// temp file in the same directory so a crash mid-write never leaves a
// truncated dataset behind.
func WriteDataset(path string, records []CountryData) error {
	if records == nil {
		records = []CountryData{}
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating dataset directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp dataset file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing dataset file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing dataset %s: %w", path, err)
	}
	return nil
}
