package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jaam8/council_bot/internal/models"
)

func markdownTable(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(escapeCells(header), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(header))
		copy(cells, row)
		b.WriteString("| " + strings.Join(escapeCells(cells), " | ") + " |\n")
	}
	return b.String()
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.NewReplacer("|", `\|`, "\n", " ").Replace(c)
	}
	return out
}

// flattenRecords lays records out as rows under the sorted union of their keys.
func flattenRecords(records []map[string]any) ([]string, [][]string) {
	keys := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			keys[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(keys))
	for k := range keys {
		header = append(header, k)
	}
	sort.Strings(header)

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(header))
		for i, k := range header {
			row[i] = cellText(rec[k])
		}
		rows = append(rows, row)
	}
	return header, rows
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func recordsCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatCandidate(c models.Candidate, selected bool) string {
	var b strings.Builder
	mark := "[ ]"
	if selected {
		mark = "[x]"
	}
	fmt.Fprintf(&b, "%s **%s** (id `%s`)\n", mark, c.Name, c.ID)
	if c.Bio != "" {
		fmt.Fprintf(&b, "> %s\n", c.Bio)
	}
	for _, qa := range c.SortedQA() {
		fmt.Fprintf(&b, "  - **%s** %s\n", qa.Label, qa.Answer)
	}
	return b.String()
}

func formatDraft(s models.VoterSession) string {
	ids := make([]string, len(s.Draft))
	for i, id := range s.Draft {
		ids[i] = "`" + id.String() + "`"
	}
	selection := "nothing selected"
	if len(ids) > 0 {
		selection = strings.Join(ids, ", ")
	}
	msg := fmt.Sprintf("Region: **%s**\nCurrent selection (%d/%d): %s", s.Region.Pretty(), len(ids), models.MaxSelections, selection)
	if s.OverLimit() {
		msg += "\n" + msgTooMany
	}
	return msg
}
