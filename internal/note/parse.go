package note

// #region imports
import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// #endregion

// #region load

// Load reads notes from a file holding either a JSON array or one JSON
// object per line. The format is sniffed from the first non-space byte.
// Returns the parsed notes and the count of skipped malformed lines.
func Load(path string) ([]Note, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read notes %s: %w", path, err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var notes []Note
		if err := json.Unmarshal(data, &notes); err != nil {
			return nil, 0, fmt.Errorf("parse notes %s: %w", path, err)
		}
		return notes, 0, nil
	}

	notes, skipped := ParseLines(bytes.NewReader(data))
	return notes, skipped, nil
}

// #endregion

// #region parse-lines

// maxLineBytes bounds a single JSONL note; payload blobs can be large.
const maxLineBytes = 1 << 20

// ParseLines reads one JSON note per line. Malformed or blank lines are
// skipped, not fatal: capture output is append-only and a torn final line
// is normal while a run is still writing.
func ParseLines(r io.Reader) (notes []Note, skipped int) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var n Note
		if err := json.Unmarshal(line, &n); err != nil {
			skipped++
			continue
		}
		notes = append(notes, n)
	}
	if scanner.Err() != nil {
		// Treat a truncated tail as one skipped record.
		skipped++
	}
	return notes, skipped
}

// #endregion
