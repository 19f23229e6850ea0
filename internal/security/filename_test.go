package security

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pilot-1", "pilot-1"},
		{"pilot 1/2", "pilot_1_2"},
		{"hñdi@batch", "h_di_batch"},
		{"__name__", "name"},
		{"", "unknown"},
		{"...", "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilenameTruncates(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	got := SanitizeFilename(string(long))
	if len(got) > 128 {
		t.Errorf("Expected at most 128 characters, got %d", len(got))
	}
}
