package monitor

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// ReportFormat selects how WriteReport renders a snapshot
type ReportFormat string

const (
	ReportFormatText     ReportFormat = "text"
	ReportFormatJSON     ReportFormat = "json"
	ReportFormatMarkdown ReportFormat = "markdown"
	ReportFormatCSV      ReportFormat = "csv"
)

// WriteReport renders snap to w. Unknown formats fall back to text.
func WriteReport(w io.Writer, snap Snapshot, format ReportFormat) error {
	var (
		out string
		err error
	)
	switch format {
	case ReportFormatJSON:
		out, err = formatJSON(snap)
	case ReportFormatMarkdown:
		out = formatMarkdown(snap)
	case ReportFormatCSV:
		out = formatCSV(snap)
	default:
		out = formatText(snap)
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func formatJSON(snap Snapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal request stats: %w", err)
	}
	return string(data) + "\n", nil
}

func formatText(snap Snapshot) string {
	var sb strings.Builder
	calls, failures := snap.Totals()

	sb.WriteString("Backend Requests\n")
	sb.WriteString("================\n")
	sb.WriteString(fmt.Sprintf("Calls: %d (%d failed)\n", calls, failures))
	sb.WriteString(fmt.Sprintf("Transferred: %s sent, %s received\n", byteSize(snap.BytesSent), byteSize(snap.BytesReceived)))
	if snap.PeakInFlight > 1 {
		sb.WriteString(fmt.Sprintf("Peak concurrency: %d\n", snap.PeakInFlight))
	}

	for _, op := range snap.Operations {
		sb.WriteString(fmt.Sprintf("  %-16s %3d call(s)  avg %-9s max %-9s", op.Operation, op.Count, round(op.Avg), round(op.Max)))
		if op.Errors > 0 {
			sb.WriteString(fmt.Sprintf("  %d failed", op.Errors))
		}
		if op.Retries > 0 {
			sb.WriteString(fmt.Sprintf("  %d retried", op.Retries))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatMarkdown(snap Snapshot) string {
	var sb strings.Builder

	sb.WriteString("## Backend Requests\n\n")
	sb.WriteString("| Operation | Calls | Failed | Retries | Avg | Max |\n")
	sb.WriteString("|-----------|-------|--------|---------|-----|-----|\n")
	for _, op := range snap.Operations {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %s | %s |\n",
			op.Operation, op.Count, op.Errors, op.Retries, round(op.Avg), round(op.Max)))
	}
	sb.WriteString(fmt.Sprintf("\n**Transferred:** %s sent, %s received\n", byteSize(snap.BytesSent), byteSize(snap.BytesReceived)))
	return sb.String()
}

func formatCSV(snap Snapshot) string {
	var sb strings.Builder

	sb.WriteString("operation,count,errors,retries,avg_ns,max_ns\n")
	for _, op := range snap.Operations {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%d,%d\n",
			op.Operation, op.Count, op.Errors, op.Retries, op.Avg.Nanoseconds(), op.Max.Nanoseconds()))
	}
	return sb.String()
}

func round(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(100 * time.Microsecond)
	default:
		return d.Round(time.Microsecond)
	}
}

func byteSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
