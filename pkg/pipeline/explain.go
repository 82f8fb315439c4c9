package pipeline

import (
	"fmt"
	"strings"
)

// Explain renders a human-readable account of a pipeline run for display
// alongside the generated SQL.
func Explain(result *Result) string {
	var b strings.Builder

	if !result.Success {
		b.WriteString("Query processing failed during validation.\n")
		for _, step := range result.ProcessingLog {
			if !step.Success {
				fmt.Fprintf(&b, "  - %s: %s\n", step.AgentName, step.Message)
			}
		}
		return b.String()
	}

	b.WriteString("Query processed through the agent pipeline:\n\n")
	for i, step := range result.ProcessingLog {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, step.AgentName, step.Message)
		if step.Confidence != nil {
			fmt.Fprintf(&b, "   confidence: %.0f%%\n", *step.Confidence*100)
		}
		for _, e := range step.Enhancements {
			fmt.Fprintf(&b, "   - %s\n", e)
		}
		for _, opt := range step.Optimizations {
			fmt.Fprintf(&b, "   - %s\n", opt)
		}
	}

	fmt.Fprintf(&b, "\nOverall confidence: %.0f%%\n", result.OverallConfidence*100)

	imp := result.Improvements
	if imp.SyntaxCorrections > 0 || imp.WhereEnhancements > 0 || imp.Optimizations > 0 || imp.ColumnFixes > 0 || imp.RegenerationNeeded {
		b.WriteString("\nImprovements:\n")
		if imp.SyntaxCorrections > 0 {
			fmt.Fprintf(&b, "- fixed %d syntax issues\n", imp.SyntaxCorrections)
		}
		if imp.WhereEnhancements > 0 {
			fmt.Fprintf(&b, "- added %d WHERE clause enhancements\n", imp.WhereEnhancements)
		}
		if imp.Optimizations > 0 {
			fmt.Fprintf(&b, "- applied %d query optimizations\n", imp.Optimizations)
		}
		if imp.ColumnFixes > 0 {
			fmt.Fprintf(&b, "- fixed %d column issues\n", imp.ColumnFixes)
		}
		if imp.RegenerationNeeded {
			b.WriteString("- SQL regeneration was required due to column validation failures\n")
		}
	}

	return b.String()
}
