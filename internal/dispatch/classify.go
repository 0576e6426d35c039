package dispatch

import (
	"strings"

	"dialer-platform/internal/tracker"
)

// ClassifyResult maps a provider's raw end-of-call label onto the closed
// outcome set. Labels vary per provider, so matching is lowercase and
// dash/underscore-insensitive.
//
// Anything unrecognized classifies as error: a call whose result cannot
// be interpreted still counts against the attempt budget and must never
// be silently dropped.
func ClassifyResult(raw string) tracker.Outcome {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.ReplaceAll(norm, "-", "_")

	switch norm {
	case "no_answer", "busy", "voicemail", "customer_did_not_answer", "machine_detected":
		return tracker.OutcomeNoAnswer
	case "scheduled", "booked", "appointment_booked", "appointment_scheduled":
		return tracker.OutcomeScheduled
	case "not_interested", "declined", "do_not_call", "rejected":
		return tracker.OutcomeNotInterested
	default:
		return tracker.OutcomeError
	}
}
