package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatflowers/letterdesk/pkg/types"
	"gorm.io/datatypes"
)

// IntakeData is the structured description of the legal matter as submitted
// by the client.
type IntakeData struct {
	SenderName          string `json:"senderName"`
	SenderAddress       string `json:"senderAddress"`
	RecipientName       string `json:"recipientName"`
	RecipientAddress    string `json:"recipientAddress"`
	IssueDescription    string `json:"issueDescription"`
	DesiredOutcome      string `json:"desiredOutcome"`
	AmountDemanded      string `json:"amountDemanded,omitempty"`
	SupportingDocuments string `json:"supportingDocuments,omitempty"`
}

// MissingFields returns the json names of required fields that are blank.
func (d *IntakeData) MissingFields() []string {
	if d == nil {
		return []string{"intakeData"}
	}
	required := []struct {
		name  string
		value string
	}{
		{"senderName", d.SenderName},
		{"senderAddress", d.SenderAddress},
		{"recipientName", d.RecipientName},
		{"recipientAddress", d.RecipientAddress},
		{"issueDescription", d.IssueDescription},
		{"desiredOutcome", d.DesiredOutcome},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Fields flattens the intake into the key/value mapping handed to the
// drafting service. Optional fields are omitted when blank.
func (d *IntakeData) Fields() map[string]string {
	m := map[string]string{
		"senderName":       d.SenderName,
		"senderAddress":    d.SenderAddress,
		"recipientName":    d.RecipientName,
		"recipientAddress": d.RecipientAddress,
		"issueDescription": d.IssueDescription,
		"desiredOutcome":   d.DesiredOutcome,
	}
	if strings.TrimSpace(d.AmountDemanded) != "" {
		m["amountDemanded"] = d.AmountDemanded
	}
	if strings.TrimSpace(d.SupportingDocuments) != "" {
		m["supportingDocuments"] = d.SupportingDocuments
	}
	return m
}

type Letter struct {
	ID              string                          `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID          string                          `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Title           string                          `gorm:"column:title;type:varchar(255)" json:"title"`
	LetterType      types.LetterType                `gorm:"column:letter_type;type:varchar(64);not null" json:"letter_type"`
	IntakeData      datatypes.JSONType[*IntakeData] `gorm:"column:intake_data;type:jsonb" json:"intake_data"`
	AIDraftContent  *string                         `gorm:"column:ai_draft_content;type:text;default:null" json:"ai_draft_content"`
	FinalContent    *string                         `gorm:"column:final_content;type:text;default:null" json:"final_content"`
	Status          types.LetterStatus              `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	ReviewedBy      *string                         `gorm:"column:reviewed_by;type:varchar(64);default:null;index" json:"reviewed_by"`
	ReviewNotes     *string                         `gorm:"column:review_notes;type:text;default:null" json:"review_notes,omitempty"`
	RejectionReason *string                         `gorm:"column:rejection_reason;type:text;default:null" json:"rejection_reason"`
	FailureReason   *string                         `gorm:"column:failure_reason;type:text;default:null" json:"-"`
	IsFreeTrial     bool                            `gorm:"column:is_free_trial;not null;default:false" json:"is_free_trial"`
	CreatedAt       time.Time                       `json:"created_at"`
	UpdatedAt       time.Time                       `json:"updated_at"`
	ReviewedAt      *time.Time                      `gorm:"column:reviewed_at;default:null" json:"reviewed_at"`
	ApprovedAt      *time.Time                      `gorm:"column:approved_at;default:null" json:"approved_at"`
}

func (Letter) TableName() string {
	return "letter"
}

// AssignedToOther reports whether the letter is locked by a reviewer other
// than adminID.
func (l *Letter) AssignedToOther(adminID string) bool {
	return l.ReviewedBy != nil && *l.ReviewedBy != "" && *l.ReviewedBy != adminID
}

// CheckContentInvariant verifies that final content is present exactly for
// approved letters and a rejection reason exactly for rejected ones.
func (l *Letter) CheckContentInvariant() error {
	status := l.Status.Canonical()
	hasFinal := l.FinalContent != nil
	if hasFinal != (status == types.LetterStatusApproved) {
		return fmt.Errorf("letter %s: final_content present=%t with status %s", l.ID, hasFinal, l.Status)
	}
	hasReason := l.RejectionReason != nil
	if hasReason != (status == types.LetterStatusRejected) {
		return fmt.Errorf("letter %s: rejection_reason present=%t with status %s", l.ID, hasReason, l.Status)
	}
	return nil
}

// ForOwner strips internal-only fields before the letter is shown to its author.
func (l *Letter) ForOwner() *Letter {
	cp := *l
	cp.ReviewNotes = nil
	return &cp
}

// LetterAuditLog is the append-only record of lifecycle transitions.
type LetterAuditLog struct {
	ID          string             `gorm:"column:id;type:uuid;primary_key" json:"id"`
	LetterID    string             `gorm:"column:letter_id;type:uuid;not null;index:idx_letter_audit_letter,priority:1" json:"letter_id"`
	Action      types.AuditAction  `gorm:"column:action;type:varchar(64);not null" json:"action"`
	OldStatus   types.LetterStatus `gorm:"column:old_status;type:varchar(32)" json:"old_status"`
	NewStatus   types.LetterStatus `gorm:"column:new_status;type:varchar(32);not null" json:"new_status"`
	Notes       string             `gorm:"column:notes;type:text" json:"notes"`
	PerformedBy string             `gorm:"column:performed_by;type:varchar(64)" json:"performed_by"`
	CreatedAt   time.Time          `gorm:"index:idx_letter_audit_letter,priority:2" json:"created_at"`
}

func (LetterAuditLog) TableName() string {
	return "letter_audit_log"
}
