package core

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReadRecords loads extraction output from a JSON file. Acquisition tools
// emit either a bare array of objects or a {"records": [...]} wrapper; both
// are accepted.
func ReadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var wrapped struct {
		Records []Record `json:"records"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parsing records from %s: %w", path, err)
	}
	if wrapped.Records == nil {
		return nil, fmt.Errorf("no records found in %s", path)
	}
	return wrapped.Records, nil
}
