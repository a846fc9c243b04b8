package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
)

// FormatRunSummary returns a human-readable summary of one analysis run.
func FormatRunSummary(summary RunSummary, report AnalysisReport) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Analyzed %d files (mode: %s)", summary.TotalFiles, summary.Mode))
	if len(report.Distribution) > 0 {
		top := report.Distribution[0]
		parts = append(parts, fmt.Sprintf("top type: %s (%d)", top.ContentType, top.Count))
	}
	if len(report.Rules) > 0 {
		parts = append(parts, fmt.Sprintf("%d rules", len(report.Rules)))
	}
	if len(report.Consolidations) > 0 {
		parts = append(parts, fmt.Sprintf("%d consolidation suggestions", len(report.Consolidations)))
	}
	if summary.FallbackCount > 0 {
		parts = append(parts, fmt.Sprintf("%d heuristic fallbacks", summary.FallbackCount))
	}
	if summary.Usage.TotalTokens() > 0 {
		parts = append(parts, fmt.Sprintf("%d tokens", summary.Usage.TotalTokens()))
	}
	msg := strings.Join(parts, ", ")
	if summary.ReportPath != "" {
		msg += fmt.Sprintf("\nReport: %s", summary.ReportPath)
	}
	return msg
}

// PostRunSummary posts the run summary to the configured Slack channel.
// Posting is best-effort; failures are logged, never fatal.
func PostRunSummary(api *slack.Client, channelID string, summary RunSummary, report AnalysisReport) {
	if api == nil || channelID == "" {
		return
	}
	_, _, err := api.PostMessage(channelID, slack.MsgOptionText(
		fmt.Sprintf("Analysis complete: %s", FormatRunSummary(summary, report)), false))
	if err != nil {
		log.Printf("notify post error: %v", err)
	}
}
