package transport

import "testing"

func TestClassifyOutputRecognizesRejectPatterns(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   ExitHint
	}{
		{"dual mode", "Please disable dual mode on port 1/1/10", ExitError},
		{"already a member", "Port 1/1/5 is already a member of VLAN 100", ExitError},
		{"stp", "Port is in spanning-tree blocking state", ExitError},
		{"invalid input", "Invalid input -> foo", ExitError},
		{"unrecognized", "Unrecognized command", ExitError},
		{"connection closed", "Connection closed by foreign host", ExitDisconnect},
		{"clean output", "VLAN 100\n Untagged Ports: 1 2 3", ExitOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyOutput(tt.output); got != tt.want {
				t.Errorf("ClassifyOutput(%q) = %v, want %v", tt.output, got, tt.want)
			}
		})
	}
}

func TestClassifyOutputIgnoresStatisticalErrorFail(t *testing.T) {
	// spec §4.1 / §8 boundary: counters containing the literal words
	// "error" or "fail" must not be classified as failures.
	output := "RX packets: 100, errors: 2, fail_count: 0"
	if got := ClassifyOutput(output); got != ExitOK {
		t.Errorf("ClassifyOutput(stat output) = %v, want ExitOK", got)
	}
}

func TestMatchedPattern(t *testing.T) {
	if got := MatchedPattern("Please disable dual mode"); got != "please disable dual mode" {
		t.Errorf("MatchedPattern = %q", got)
	}
	if got := MatchedPattern("all clear"); got != "" {
		t.Errorf("MatchedPattern(clean) = %q, want empty", got)
	}
}
