package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/runnerr0/activity/internal/feed"
)

// importResult counts what happened to each record.
type importResult struct {
	Added    int      `json:"added"`
	Excluded int      `json:"excluded"`
	Invalid  int      `json:"invalid"`
	Errors   []string `json:"errors,omitempty"`
}

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	if c.File == "" {
		return fmt.Errorf("--file is required for import command")
	}

	var r io.Reader = os.Stdin
	if c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()
		r = f
	}

	e, closeEnv, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer closeEnv()

	return c.run(e, r)
}

// run imports records from r into the env's store (used by tests).
func (c *ImportCommand) run(e *env, r io.Reader) error {
	records, err := readRecords(r)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var res importResult
	for i, raw := range records {
		var v feed.Visit
		if err := json.Unmarshal(raw, &v); err != nil {
			res.Invalid++
			res.Errors = append(res.Errors, fmt.Sprintf("record %d: %v", i+1, err))
			continue
		}
		if err := e.store.AddVisitFrom(ctx, &v, c.Source); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
		if v.ID == "" {
			res.Excluded++
			continue
		}
		res.Added++
	}

	e.logger.Debug("imported visits", "added", res.Added, "excluded", res.Excluded, "invalid", res.Invalid)

	if c.globals != nil && c.globals.JSON {
		return printJSON(res)
	}

	fmt.Printf("Imported %d visits (%d excluded, %d invalid)\n", res.Added, res.Excluded, res.Invalid)
	for _, msg := range res.Errors {
		fmt.Printf("  %s\n", msg)
	}
	return nil
}

// readRecords splits r into raw JSON records. A leading '[' means a JSON
// array, anything else is read as one object per line.
func readRecords(r io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import data: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("parse JSON array: %w", err)
		}
		return records, nil
	}

	var records []json.RawMessage
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		records = append(records, json.RawMessage(append([]byte(nil), line...)))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read JSON lines: %w", err)
	}
	return records, nil
}
