package rules

// MatchAll evaluates every record against every rule in catalog order.
//
// Each record yields one MatchResult, in record order, listing the IDs of the
// rules it matched. The run also counts every check performed and every match
// on an automatable rule. A rule that cannot be evaluated against a record
// counts as a check that did not match; it never stops the run.
func (en *Engine) MatchAll(records []Record, catalog []*Rule) *Run {
	run := &Run{
		Results: make([]MatchResult, 0, len(records)),
		Records: len(records),
	}

	for _, record := range records {
		matched := []string{}
		for _, rule := range catalog {
			run.Checks++
			if !en.Evaluate(record, rule) {
				continue
			}
			matched = append(matched, rule.ID)
			if rule.Automatable {
				run.AutomatableMatches++
			}
		}

		run.Results = append(run.Results, MatchResult{
			PRID:         record.ID(),
			MatchedRules: matched,
		})
	}

	return run
}

// MatchAll runs the shared engine over records and catalog
func MatchAll(records []Record, catalog []*Rule) *Run {
	return defaultEngine().MatchAll(records, catalog)
}
