package types

type LetterStatus string

const (
	LetterStatusGenerating    LetterStatus = "generating"
	LetterStatusPendingReview LetterStatus = "pending_review"
	LetterStatusUnderReview   LetterStatus = "under_review"
	LetterStatusApproved      LetterStatus = "approved"
	LetterStatusRejected      LetterStatus = "rejected"
	LetterStatusFailed        LetterStatus = "failed"

	// LetterStatusCompleted is a legacy label for approved letters. It is
	// accepted on read and never written.
	LetterStatusCompleted LetterStatus = "completed"
)

// Canonical folds legacy labels into the canonical status.
func (s LetterStatus) Canonical() LetterStatus {
	if s == LetterStatusCompleted {
		return LetterStatusApproved
	}
	return s
}

func (s LetterStatus) IsTerminal() bool {
	switch s.Canonical() {
	case LetterStatusApproved, LetterStatusRejected, LetterStatusFailed:
		return true
	}
	return false
}

type LetterType string

const (
	LetterTypeDemand            LetterType = "demand_letter"
	LetterTypeCeaseDesist       LetterType = "cease_desist"
	LetterTypeContractBreach    LetterType = "contract_breach"
	LetterTypeEvictionNotice    LetterType = "eviction_notice"
	LetterTypeEmploymentDispute LetterType = "employment_dispute"
	LetterTypeConsumerComplaint LetterType = "consumer_complaint"
)

var supportedLetterTypes = map[LetterType]string{
	LetterTypeDemand:            "Demand Letter",
	LetterTypeCeaseDesist:       "Cease and Desist",
	LetterTypeContractBreach:    "Contract Breach Notice",
	LetterTypeEvictionNotice:    "Eviction Notice",
	LetterTypeEmploymentDispute: "Employment Dispute",
	LetterTypeConsumerComplaint: "Consumer Complaint",
}

func (t LetterType) Supported() bool {
	_, ok := supportedLetterTypes[t]
	return ok
}

// Label returns the human readable name, or the raw value for unknown types.
func (t LetterType) Label() string {
	if l, ok := supportedLetterTypes[t]; ok {
		return l
	}
	return string(t)
}

type AuditAction string

const (
	AuditActionCreated       AuditAction = "created"
	AuditActionDrafted       AuditAction = "drafted"
	AuditActionFailed        AuditAction = "generation_failed"
	AuditActionReviewStarted AuditAction = "review_started"
	AuditActionApproved      AuditAction = "approved"
	AuditActionRejected      AuditAction = "rejected"
)
