package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentType is a verification profile label.
type DocumentType string

const (
	DocumentPassport       DocumentType = "passport"
	DocumentIDCard         DocumentType = "id_card"
	DocumentDrivingLicense DocumentType = "driving_license"
	DocumentGeneric        DocumentType = "generic"
)

// VerificationRecord is the verdict for one document image. It is built once
// per verification and not mutated afterwards.
type VerificationRecord struct {
	ID                    uuid.UUID                 `json:"id"`
	DocumentType          string                    `json:"document_type"`
	Profile               DocumentType              `json:"profile"`
	VerificationTimestamp time.Time                 `json:"verification_timestamp"`
	IsAuthentic           bool                      `json:"is_authentic"`
	Confidence            float64                   `json:"confidence"`
	Checks                map[CheckName]CheckResult `json:"checks"`
}

// UnmarshalJSON restores the typed check details keyed by check name.
func (r *VerificationRecord) UnmarshalJSON(data []byte) error {
	type alias VerificationRecord
	var aux struct {
		alias
		Checks map[CheckName]json.RawMessage `json:"checks"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = VerificationRecord(aux.alias)
	r.Checks = make(map[CheckName]CheckResult, len(aux.Checks))
	for name, raw := range aux.Checks {
		result, err := decodeCheck(name, raw)
		if err != nil {
			return err
		}
		r.Checks[name] = result
	}
	return nil
}

// EdgeDetection is the standalone framing result.
type EdgeDetection struct {
	Detected   bool    `json:"detected"`
	Corners    []Point `json:"corners"`
	Confidence float64 `json:"confidence"`
}

// VerificationError reports an orchestration failure, as opposed to a check
// that merely found nothing.
type VerificationError struct {
	Op  string
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification %s: %v", e.Op, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// IsVerificationError reports whether err came from the orchestration layer.
func IsVerificationError(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}
