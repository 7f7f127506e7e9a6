package dns

import (
	"bufio"
	"fmt"
	"os"
	"regexp"

	"github.com/droidsift-project/droidsift/internal/core"
)

// queryLinePattern matches resolver log lines of the form
// "2025-07-01 09:15:00 ... query example.com.".
var queryLinePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}).*?query\s+(\S+)`)

// ReadLog converts a DNS query log into raw records. Lines that do not look
// like query entries are skipped; how the log got off the device is the
// acquisition layer's problem, not ours.
func ReadLog(path string) ([]core.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dns log: %w", err)
	}
	defer f.Close()

	var records []core.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := queryLinePattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		records = append(records, core.Record{
			"timestamp": m[1],
			"domain":    m[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dns log: %w", err)
	}
	return records, nil
}
