package core

import (
	"errors"
	"fmt"
)

// ErrClassifierUnavailable signals that the optional trained-model artifact is
// missing or unloadable. Scoring continues heuristic-only; findings produced
// in that mode carry Degraded = true.
var ErrClassifierUnavailable = errors.New("classifier artifact unavailable")

// MalformedRecordError describes a raw record that could not be normalized
// into a FeatureSet. It becomes an Error row in the report; it never aborts
// the batch.
type MalformedRecordError struct {
	Domain  Domain
	Subject string // best-effort identifier for the failed record
	Reason  string
}

func (e *MalformedRecordError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s: malformed record %q: %s", e.Domain, e.Subject, e.Reason)
	}
	return fmt.Sprintf("%s: malformed record: %s", e.Domain, e.Reason)
}

// ExternalServiceError wraps a failure from an external collaborator such as
// the threat-intel service. Lookups degrade to an Error verdict; the error is
// logged, never propagated into scoring.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// PersistenceError wraps a session-ledger failure. It is fatal for the run,
// but report artifacts already on disk stay valid and are not rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("session ledger: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IntegrityError reports a digest mismatch between a report CSV and its
// manifest: the evidence no longer matches what was bundled. It is surfaced
// as a tamper warning and never auto-repaired.
type IntegrityError struct {
	Path string
	Want string
	Got  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: manifest %s, recomputed %s", e.Path, e.Want, e.Got)
}
