package util

import "testing"

func TestStoredText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Diesel Cars", want: "Diesel Cars"},
		{name: "subscripts", input: "PM₂.₅", want: "PM₂.₅"},
		{name: "null byte", input: "Ozo\x00ne", want: "Ozone"},
		{name: "invalid utf8", input: string([]byte{'N', 0xff, 'O', '2'}), want: "NO2"},
		{name: "line break", input: "Low\nEmission Zone", want: "Low Emission Zone"},
		{name: "escape sequence", input: "Bus\x1b Lanes", want: "Bus Lanes"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StoredText(tt.input); got != tt.want {
				t.Fatalf("StoredText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
