// Package report persists match results and prints the run summary.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/liamcoop/prrules/rules"
	"github.com/liamcoop/prrules/tabular"
)

// Delimiter separates rule IDs in the matched_rules column
const Delimiter = ";"

// Header is the report's header row
var Header = []string{"pr_id", "matched_rules"}

// Rows renders results as report rows, in result order
func Rows(results []rules.MatchResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		rows = append(rows, []string{res.PRID, strings.Join(res.MatchedRules, Delimiter)})
	}
	return rows
}

// WriteReport writes results to path, replacing any earlier report.
// Failures are reported as *tabular.WriteError.
func WriteReport(path string, results []rules.MatchResult) error {
	return tabular.WriteTable(path, Header, Rows(results))
}

// Summary describes a finished run for humans
type Summary struct {
	Records            int
	Checks             int
	AutomatableMatches int
	AutomatablePercent float64
	ReportPath         string
}

// Summarize collects the counters of run and the location of its report
func Summarize(run *rules.Run, reportPath string) Summary {
	return Summary{
		Records:            run.Records,
		Checks:             run.Checks,
		AutomatableMatches: run.AutomatableMatches,
		AutomatablePercent: run.AutomatablePercent(),
		ReportPath:         reportPath,
	}
}

// Print writes the summary lines to w
func (s Summary) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"Rule application complete\n"+
			"PRs processed: %d\n"+
			"Rule checks executed: %d\n"+
			"Automatable matches: %d (%.1f%% of checks)\n"+
			"Report written to: %s\n",
		s.Records, s.Checks, s.AutomatableMatches, s.AutomatablePercent, s.ReportPath)
	return err
}
