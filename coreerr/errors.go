// Package coreerr defines the stable, byte-string error identifiers the
// verifier core reports at its boundaries.
package coreerr

import "fmt"

// Code is a stable identifier for a structural failure. Codes are part of
// the external interface and must not be renamed.
type Code string

const (
	EWrongFeedHashLength      Code = "EWrongFeedHashLength"
	EWrongOracleIDLength      Code = "EWrongOracleIdLength"
	EWrongSlothashLength      Code = "EWrongSlothashLength"
	EWrongQueueLength         Code = "EWrongQueueLength"
	EWrongMrEnclaveLength     Code = "EWrongMrEnclaveLength"
	EWrongSecp256k1KeyLength  Code = "EWrongSec256k1KeyLength"
	EQueueMismatch            Code = "EQueueMismatch"
	EOracleInvalid            Code = "EOracleInvalid"
	EInvalidLength            Code = "EInvalidLength"
	EInvalidQueue             Code = "EInvalidQueue"
	EQuoteNotFound            Code = "EQuoteNotFound"
	EInvalidAuthority         Code = "EInvalidAuthority"
	EInvalidMinAttestations   Code = "EInvalidMinAttestations"
	EInvalidOracleValidityLen Code = "EInvalidOracleValidityLength"
	EFeeType                  Code = "EFeeType"
	EInvalidArity             Code = "EInvalidArity"
)

// CoreError is the typed failure every structural guard in this module
// returns. It carries a stable Code plus an operator-facing Msg.
type CoreError struct {
	Code Code
	Msg  string
}

func (e *CoreError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// New builds a *CoreError with the given code and message.
func New(code Code, msg string) error {
	return &CoreError{Code: code, Msg: msg}
}

// Newf builds a *CoreError with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &CoreError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a *CoreError carrying the given code.
func Is(err error, code Code) bool {
	ce, ok := err.(*CoreError)
	return ok && ce != nil && ce.Code == code
}
