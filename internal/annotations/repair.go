package annotations

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/diagimmo/suiviclientpro/internal/jsonfile"
)

// RepairReport describes the outcome of Repair.
type RepairReport struct {
	Input  string
	Output string
	// Kept and Dropped count the input lines that survived or were discarded.
	Kept    int
	Dropped int
	Entries int
	// Unverified is always true: the heuristic cannot tell a recovered entry from a
	// fragment that merely happens to parse.
	Unverified bool
}

// Repair is an offline, best-effort recovery of a damaged annotation document.
//
// It swaps single quotes for double quotes, treats every line as a `"key": value`
// fragment, keeps the lines that parse on their own, and writes the re-assembled
// object to out. It only helps when the damage is superficial quoting; nested
// entries spread over several lines are dropped. The input is never modified and
// the main load path never calls this.
func Repair(in, out string) (RepairReport, error) {
	report := RepairReport{Input: in, Output: out, Unverified: true}

	raw, err := os.ReadFile(in)
	if err != nil {
		return report, fmt.Errorf("failed to read %s: %w", in, err)
	}

	content := strings.ReplaceAll(string(raw), "'", `"`)
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		fragment := strings.Trim(strings.TrimSpace(line), ",")
		if fragment == "" {
			continue
		}
		var check map[string]json.RawMessage
		if err := json.Unmarshal([]byte("{"+fragment+"}"), &check); err != nil {
			report.Dropped++
			continue
		}
		kept = append(kept, fragment)
	}
	report.Kept = len(kept)

	assembled := "{\n" + strings.Join(kept, ",\n") + "\n}"
	var entries map[string]Entry
	if err := json.Unmarshal([]byte(assembled), &entries); err != nil {
		return report, fmt.Errorf("unable to repair %s: %w", in, err)
	}
	report.Entries = len(entries)

	if err := jsonfile.Write(out, entries); err != nil {
		return report, err
	}
	return report, nil
}

// RepairOutputPath derives the default output name: manual_states.json → manual_states_repair.json.
func RepairOutputPath(in string) string {
	if strings.HasSuffix(in, CorruptSuffix) {
		in = strings.TrimSuffix(in, CorruptSuffix)
	}
	if strings.HasSuffix(in, ".json") {
		return strings.TrimSuffix(in, ".json") + "_repair.json"
	}
	return in + "_repair.json"
}
