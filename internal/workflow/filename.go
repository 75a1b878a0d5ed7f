package workflow

import (
	"path/filepath"
	"strings"
)

const (
	DefaultFilenamePrefix = "PCI_DSS_Action_Report"
	DefaultExtension      = "xlsx"
)

// ReportFilename derives <prefix>_<stem>.<ext> from the source file name.
// Directories and the extension of the source are dropped, and every rune
// outside [A-Za-z0-9._-] in the stem becomes '_'.
func ReportFilename(prefix, sourceName, ext string) string {
	if prefix == "" {
		prefix = DefaultFilenamePrefix
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultExtension
	}

	base := sourceName
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	stem = SanitizeStem(stem)
	if stem == "" {
		stem = "report"
	}

	return prefix + "_" + stem + "." + ext
}

// SanitizeStem replaces runes outside [A-Za-z0-9._-] with '_'
func SanitizeStem(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
