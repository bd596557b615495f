// Package journal persists meal totals as an append-only flat text
// file. The file is the system of record: reports are computed by
// parsing it back, never from a database.
package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"nutricoach/internal/logging"
	"nutricoach/internal/pipeline"
)

const timestampLayout = "2006-01-02 15:04:05"

// Journal appends and reads timestamped nutrient blocks:
//
//	[2026-08-24 13:05:01]
//	  calories: 604.1 kcal
//	  carbohydrate: 59.2 g
//	  protein: 39.4 g
//	  fat: 21.3 g
//	  sugar: 0.2 g
//	  sodium: 1388 mg
type Journal struct {
	path string
	mu   sync.Mutex

	// now is swappable in tests for deterministic timestamps.
	now func() time.Time
}

// New creates a journal backed by the file at path.
func New(path string) *Journal {
	return &Journal{path: path, now: time.Now}
}

// Path returns the backing file path.
func (j *Journal) Path() string {
	return j.path
}

// Append writes one timestamped block for a meal's totals.
func (j *Journal) Append(total pipeline.Nutrients) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	block := formatBlock(j.now(), total)
	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("failed to append to journal: %w", err)
	}

	logging.Journal("Meal recorded: %.1f kcal (P %.1f / C %.1f / F %.1f)",
		total.Calories, total.Protein, total.Carbohydrate, total.Fat)
	return nil
}

func formatBlock(ts time.Time, n pipeline.Nutrients) string {
	return fmt.Sprintf("[%s]\n  calories: %.1f kcal\n  carbohydrate: %.1f g\n  protein: %.1f g\n  fat: %.1f g\n  sugar: %.1f g\n  sodium: %.0f mg\n\n",
		ts.Format(timestampLayout), n.Calories, n.Carbohydrate, n.Protein, n.Fat, n.Sugar, n.Sodium)
}

// DayTotals parses the journal back into per-date sums keyed by
// "2006-01-02". Multiple blocks on one date accumulate. A missing file
// is an empty journal, not an error. Unknown lines are skipped, and
// thousands separators in values are tolerated.
func (j *Journal) DayTotals() (map[string]pipeline.Nutrients, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]pipeline.Nutrients{}, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	totals := make(map[string]pipeline.Nutrients)
	var currentDate string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			ts, perr := time.Parse(timestampLayout, line[1:len(line)-1])
			if perr != nil {
				logging.JournalError("Skipping malformed timestamp line: %s", line)
				currentDate = ""
				continue
			}
			currentDate = ts.Format("2006-01-02")
			continue
		}

		if currentDate == "" {
			continue
		}

		key, value, ok := parseNutrientLine(line)
		if !ok {
			continue
		}

		n := totals[currentDate]
		switch key {
		case "calories":
			n.Calories += value
		case "carbohydrate":
			n.Carbohydrate += value
		case "protein":
			n.Protein += value
		case "fat":
			n.Fat += value
		case "sugar":
			n.Sugar += value
		case "sodium":
			n.Sodium += value
		default:
			continue
		}
		totals[currentDate] = n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	return totals, nil
}

// TotalFor returns the accumulated intake for one date and whether any
// block exists for it.
func (j *Journal) TotalFor(date time.Time) (pipeline.Nutrients, bool, error) {
	totals, err := j.DayTotals()
	if err != nil {
		return pipeline.Nutrients{}, false, err
	}
	n, ok := totals[date.Format("2006-01-02")]
	return n, ok, nil
}

// parseNutrientLine reads "calories: 604.1 kcal" style lines. The unit
// suffix is optional and thousands separators are stripped.
func parseNutrientLine(line string) (string, float64, bool) {
	key, rest, found := strings.Cut(line, ":")
	if !found {
		return "", 0, false
	}
	key = strings.ToLower(strings.TrimSpace(key))

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", 0, false
	}
	raw := strings.ReplaceAll(fields[0], ",", "")

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", 0, false
	}
	return key, value, true
}
