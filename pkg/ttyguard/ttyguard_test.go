package ttyguard

import "testing"

func TestSuppress(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		testMode bool
		tty      bool
		want     bool
	}{
		{"interactive", []string{"il", "incident.json"}, false, true, false},
		{"test mode", []string{"il"}, true, true, true},
		{"piped stdout", []string{"il"}, false, false, true},
		{"version", []string{"il", "--version"}, false, true, true},
		{"export with value", []string{"il", "--export=out.svg"}, false, true, true},
		{"serve", []string{"il", "--serve", ":8080"}, false, true, true},
		{"lookalike flag", []string{"il", "--exported"}, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Suppress(tt.args, tt.testMode, tt.tty); got != tt.want {
				t.Errorf("Suppress(%v, %v, %v) = %v, want %v", tt.args, tt.testMode, tt.tty, got, tt.want)
			}
		})
	}
}
