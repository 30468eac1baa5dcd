package letter

import (
	"errors"

	"github.com/fatflowers/letterdesk/internal/app/service/credit"
)

var (
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("invalid request")
	ErrNotFound   = errors.New("letter not found")
	// ErrReviewerConflict means the letter is assigned to another admin.
	ErrReviewerConflict = errors.New("letter is being reviewed by another admin")
	// ErrInvalidStatus means the stored status does not allow the action.
	ErrInvalidStatus = errors.New("letter status does not allow this action")
	// ErrStatusConflict means the status changed while the request was in flight.
	ErrStatusConflict   = errors.New("letter status changed concurrently")
	ErrGenerationFailed = errors.New("letter generation failed")
	ErrNoCredit         = credit.ErrNoCredit
)
