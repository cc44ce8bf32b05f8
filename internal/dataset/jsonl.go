package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/botforgehq/botforge/internal/models"
)

// scanner line budget; one example per line.
const maxLineBytes = 1024 * 1024

// EncodeJSONL serializes examples as newline-delimited JSON, one example
// per line.
func EncodeJSONL(examples []models.TrainingExample) (string, error) {
	var b strings.Builder
	for i, ex := range examples {
		line, err := ex.MarshalLine()
		if err != nil {
			return "", fmt.Errorf("marshal example %d: %w", i, err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// DecodeJSONL parses newline-delimited examples, rejecting any line that
// is not valid JSON or not a usable example. Used to verify serialized
// content round-trips before committing it.
func DecodeJSONL(content string) ([]models.TrainingExample, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, maxLineBytes), maxLineBytes)

	var out []models.TrainingExample
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ex models.TrainingExample
		if err := json.Unmarshal([]byte(line), &ex); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNo, err)
		}
		if !ex.Valid() {
			return nil, fmt.Errorf("line %d: need at least 2 messages with one user and one assistant", lineNo)
		}
		out = append(out, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan content: %w", err)
	}
	return out, nil
}

// DecodeJSONLLenient parses what it can and skips malformed lines.
// Used when re-deriving fingerprints from stored datasets, where a bad
// line must not be fatal.
func DecodeJSONLLenient(content string) []models.TrainingExample {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, maxLineBytes), maxLineBytes)

	var out []models.TrainingExample
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ex models.TrainingExample
		if err := json.Unmarshal([]byte(line), &ex); err != nil {
			continue
		}
		if len(ex.Messages) == 0 {
			continue
		}
		out = append(out, ex)
	}
	return out
}
