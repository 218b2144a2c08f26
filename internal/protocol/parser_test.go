package protocol

import "testing"

func TestParseAgreement(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantState SignalState
		wantValue bool
	}{
		{"absent", "I think the answer is 14.", SignalAbsent, false},
		{"true", "<AGREE>true</AGREE> Looks right.", SignalPresent, true},
		{"false", "<AGREE>false</AGREE> The distribution step is wrong.", SignalPresent, false},
		{"case insensitive tag", "<agree>TRUE</agree>", SignalPresent, true},
		{"mixed case tag", "<Agree>False</Agree>", SignalPresent, false},
		{"padded payload", "<AGREE>  true  </AGREE>", SignalPresent, true},
		{"last occurrence wins", "<AGREE>true</AGREE> wait, no. <AGREE>false</AGREE>", SignalPresent, false},
		{"restated same value", "<AGREE>false</AGREE> ... <AGREE>false</AGREE>", SignalPresent, false},
		{"malformed payload", "<AGREE>yes</AGREE>", SignalMalformed, false},
		{"empty payload", "<AGREE></AGREE>", SignalMalformed, false},
		{"nested tag payload", "<AGREE><b>true</b></AGREE>", SignalMalformed, false},
		{"unclosed tag is body text", "<AGREE>true and that is that", SignalAbsent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw).Agreement
			if got.State != tt.wantState {
				t.Fatalf("state = %v, want %v", got.State, tt.wantState)
			}
			if got.State == SignalPresent && got.Value != tt.wantValue {
				t.Errorf("value = %v, want %v", got.Value, tt.wantValue)
			}
		})
	}
}

func TestParseFinalAnswer(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantState SignalState
		wantValue string
	}{
		{"absent", "Let me reconsider the second step.", SignalAbsent, ""},
		{"simple", "We are aligned. <FINAL>14</FINAL>", SignalPresent, "14"},
		{"trimmed payload", "<FINAL>  14  </FINAL>", SignalPresent, "14"},
		{"multiline payload", "<FINAL>x = 3\ny = 4</FINAL>", SignalPresent, "x = 3\ny = 4"},
		{"case insensitive", "<final>42</final>", SignalPresent, "42"},
		{"last occurrence wins", "<FINAL>13</FINAL> correction: <FINAL>14</FINAL>", SignalPresent, "14"},
		{"empty payload malformed", "<FINAL></FINAL>", SignalMalformed, ""},
		{"whitespace payload malformed", "<FINAL>   </FINAL>", SignalMalformed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw).FinalAnswer
			if got.State != tt.wantState {
				t.Fatalf("state = %v, want %v", got.State, tt.wantState)
			}
			if got.State == SignalPresent && got.Value != tt.wantValue {
				t.Errorf("value = %q, want %q", got.Value, tt.wantValue)
			}
		})
	}
}

func TestParseBody(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"markers stripped", "<AGREE>false</AGREE>\nThe sign flips in step two.", "The sign flips in step two."},
		{"final stripped", "Settled.\n<FINAL>14</FINAL>", "Settled."},
		{"both stripped", "<AGREE>true</AGREE> Agreed.\n<FINAL>14</FINAL>", "Agreed."},
		{"malformed also stripped", "<AGREE>yes</AGREE> body text", "body text"},
		{"blank runs collapsed", "first\n\n\n\nsecond", "first\n\nsecond"},
		{"unclosed tag kept", "<AGREE>true body", "<AGREE>true body"},
		{"only markers", "<AGREE>false</AGREE><FINAL>14</FINAL>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.raw).Body; got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseIdempotent(t *testing.T) {
	raw := "<AGREE>false</AGREE>\nStill wrong.\n<FINAL>14</FINAL>\n<AGREE>true</AGREE>"

	first := Parse(raw)
	second := Parse(raw)
	if first != second {
		t.Errorf("Parse not idempotent: %+v vs %+v", first, second)
	}

	// A stripped body contains no markers, so reparsing it finds nothing.
	reparsed := Parse(first.Body)
	if reparsed.Agreement.State != SignalAbsent || reparsed.FinalAnswer.State != SignalAbsent {
		t.Errorf("stripped body still carries markers: %+v", reparsed)
	}
	if reparsed.Body != first.Body {
		t.Errorf("body changed on reparse: %q vs %q", reparsed.Body, first.Body)
	}
}
