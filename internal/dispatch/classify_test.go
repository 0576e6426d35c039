package dispatch

import (
	"testing"

	"dialer-platform/internal/tracker"
)

func TestClassifyResult(t *testing.T) {
	cases := []struct {
		raw  string
		want tracker.Outcome
	}{
		{"no_answer", tracker.OutcomeNoAnswer},
		{"No-Answer", tracker.OutcomeNoAnswer},
		{"  busy ", tracker.OutcomeNoAnswer},
		{"voicemail", tracker.OutcomeNoAnswer},
		{"customer-did-not-answer", tracker.OutcomeNoAnswer},
		{"machine_detected", tracker.OutcomeNoAnswer},

		{"scheduled", tracker.OutcomeScheduled},
		{"BOOKED", tracker.OutcomeScheduled},
		{"appointment-booked", tracker.OutcomeScheduled},
		{"appointment_scheduled", tracker.OutcomeScheduled},

		{"not_interested", tracker.OutcomeNotInterested},
		{"Declined", tracker.OutcomeNotInterested},
		{"do-not-call", tracker.OutcomeNotInterested},
		{"rejected", tracker.OutcomeNotInterested},

		{"", tracker.OutcomeError},
		{"gibberish", tracker.OutcomeError},
		{"failed", tracker.OutcomeError},
	}
	for _, tc := range cases {
		if got := ClassifyResult(tc.raw); got != tc.want {
			t.Errorf("ClassifyResult(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}
