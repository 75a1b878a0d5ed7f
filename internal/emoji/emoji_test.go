package emoji

import "testing"

func TestGetEmoji(t *testing.T) {
	defer SetEmojiDisabled(false)

	tests := []struct {
		name     string
		key      string
		disabled bool
		expected string
	}{
		{"emoji enabled", "success", false, "✅"},
		{"fallback when disabled", "success", true, "[OK]"},
		{"spreadsheet fallback", "spreadsheet", true, "[XLS]"},
		{"unknown key", "nope", false, "[?]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetEmojiDisabled(tt.disabled)
			if got := GetEmoji(tt.key); got != tt.expected {
				t.Errorf("GetEmoji(%q) = %q, want %q", tt.key, got, tt.expected)
			}
			if IsEmojiDisabled() != tt.disabled {
				t.Errorf("IsEmojiDisabled() = %v, want %v", IsEmojiDisabled(), tt.disabled)
			}
		})
	}
}
