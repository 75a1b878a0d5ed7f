package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportFilename(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		source string
		ext    string
		want   string
	}{
		{name: "plain", source: "report.xlsx", want: "PCI_DSS_Action_Report_report.xlsx"},
		{name: "spaces and symbols", source: "Q1 audit (final).xls", want: "PCI_DSS_Action_Report_Q1_audit__final_.xlsx"},
		{name: "unix dirs", source: "/tmp/in/report.xlsx", want: "PCI_DSS_Action_Report_report.xlsx"},
		{name: "windows dirs", source: `C:\Users\me\report.xlsx`, want: "PCI_DSS_Action_Report_report.xlsx"},
		{name: "no extension", source: "report", want: "PCI_DSS_Action_Report_report.xlsx"},
		{name: "dotted stem", source: "a.b.xlsx", want: "PCI_DSS_Action_Report_a.b.xlsx"},
		{name: "empty stem", source: ".xlsx", want: "PCI_DSS_Action_Report_report.xlsx"},
		{name: "non ascii", source: "rapor_ğü.xlsx", want: "PCI_DSS_Action_Report_rapor___.xlsx"},
		{name: "custom prefix and ext", prefix: "Gap", source: "x.xlsx", ext: ".csv", want: "Gap_x.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReportFilename(tt.prefix, tt.source, tt.ext))
		})
	}
}
