package timefmt

import "testing"

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"PT1H23M45S", 5025, false},
		{"PT15M33S", 933, false},
		{"PT2H", 7200, false},
		{"PT45S", 45, false},
		{"PT0S", 0, false},
		{"PT", 0, false},
		{"1h23m", 0, true},
		{"", 0, true},
		{"PT1H23M45Sjunk", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseISODuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseISODuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseISODuration(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0:00"},
		{45, "0:45"},
		{933, "15:33"},
		{3600, "1:00:00"},
		{5025, "1:23:45"},
		{-5, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatSeconds(tt.in); got != tt.want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"45", 45, false},
		{"15:33", 933, false},
		{"1:23:45", 5025, false},
		{" 1:00:00 ", 3600, false},
		{"1:2:3:4", 0, true},
		{"a:b", 0, true},
		{"-1:00", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClock(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
