package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const businessSubsystem = "letterdesk"

var (
	lettersGenerated = &Metric{
		ID:          "lettersGenerated",
		Name:        "letters_generated_total",
		Description: "Letters that reached the review queue, by letter type and trial flag.",
		Type:        TypeCounterVec,
		Args:        []string{"letter_type", "free_trial"},
	}
	lettersFailed = &Metric{
		ID:          "lettersFailed",
		Name:        "letters_failed_total",
		Description: "Letters moved to failed, by cause.",
		Type:        TypeCounterVec,
		Args:        []string{"cause"},
	}
	letterTransitions = &Metric{
		ID:          "letterTransitions",
		Name:        "letter_transitions_total",
		Description: "Letter lifecycle transitions, by action.",
		Type:        TypeCounterVec,
		Args:        []string{"action"},
	}
	auditFailures = &Metric{
		ID:          "auditFailures",
		Name:        "letter_audit_failures_total",
		Description: "Audit entries that could not be persisted.",
		Type:        TypeCounter,
	}
	checkouts = &Metric{
		ID:          "checkouts",
		Name:        "checkouts_total",
		Description: "Completed checkouts, by plan and coupon outcome.",
		Type:        TypeCounterVec,
		Args:        []string{"plan", "outcome"},
	}
	draftingLatency = &Metric{
		ID:          "draftingLatency",
		Name:        "drafting_latency_ms",
		Description: "Latency of drafting service calls in milliseconds, by operation.",
		Type:        TypeHistogramVec,
		Args:        []string{"operation"},
	}
)

var (
	LettersGenerated  = mustRegister(lettersGenerated, businessSubsystem).(*prometheus.CounterVec)
	LettersFailed     = mustRegister(lettersFailed, businessSubsystem).(*prometheus.CounterVec)
	LetterTransitions = mustRegister(letterTransitions, businessSubsystem).(*prometheus.CounterVec)
	AuditFailures     = mustRegister(auditFailures, businessSubsystem).(prometheus.Counter)
	Checkouts         = mustRegister(checkouts, businessSubsystem).(*prometheus.CounterVec)
	DraftingLatency   = mustRegister(draftingLatency, businessSubsystem).(*prometheus.HistogramVec)
)
