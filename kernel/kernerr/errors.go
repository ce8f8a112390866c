// Package kernerr carries the system's error taxonomy: every failure surfaced
// by the kernel packages is classified by Kind rather than by Go type, so
// callers can branch on "what went wrong" without importing every package
// that can produce an error.
package kernerr

import (
	"errors"
	"fmt"
)

// Kind classifies a kernel error. See the GLOSSARY for the exact meaning of
// each kind.
type Kind string

const (
	KindParseError            Kind = "ParseError"
	KindVerifyHashMismatch    Kind = "Verify:HashMismatch"
	KindVerifySignatureBad    Kind = "Verify:SignatureMismatch"
	KindUserNotFound          Kind = "UserNotFound"
	KindUserNameTaken         Kind = "UserNameTaken"
	KindUserKeyConflict       Kind = "UserKeyConflict"
	KindServiceNotFound       Kind = "ServiceNotFound"
	KindServiceAlreadyReg     Kind = "ServiceAlreadyRegistered"
	KindTaskNotFound          Kind = "TaskNotFound"
	KindStoreLoadFailed       Kind = "StoreLoadFailed"
	KindStoreSaveFailed       Kind = "StoreSaveFailed"
	KindDriverError           Kind = "DriverError"
	KindOutOfMemory           Kind = "OutOfMemory"
)

// Error is the concrete error type every kernel package returns. Sub carries
// the driver- or parser-specific detail named by §7 (e.g. the sub-kind of a
// ParseError or DriverError).
type Error struct {
	Kind   Kind
	Sub    string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Sub != "" {
		s += "(" + e.Sub + ")"
	}
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, kernerr.New(kind, "")) match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Sub != "" && t.Sub != e.Sub {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a bare Error of the given kind, following utils.NewError's shape.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf is New with a formatted detail string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// SubK builds an Error with a Kind-specific sub-classification, e.g.
// kernerr.SubK(KindParseError, "UnexpectedEOF", "").
func SubK(kind Kind, sub, detail string) *Error {
	return &Error{Kind: kind, Sub: sub, Detail: detail}
}

// Wrap follows utils.WrapError's shape but attaches a Kind for classification.
func Wrap(kind Kind, err error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// Of reports the Kind of err if it is (or wraps) a *Error.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is classified under kind, whatever its sub; use
// IsSub to match a specific sub as well.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// IsSub reports whether err is classified under kind with the given sub.
func IsSub(err error, kind Kind, sub string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind && e.Sub == sub
}

// Sentinel constructors mirroring the Kind taxonomy, for the common
// zero-detail case.

func ParseError(sub, detail string) *Error   { return SubK(KindParseError, sub, detail) }
func HashMismatch(detail string) *Error      { return New(KindVerifyHashMismatch, detail) }
func SignatureMismatch(detail string) *Error { return New(KindVerifySignatureBad, detail) }
func UserNotFound(name string) *Error        { return Newf(KindUserNotFound, "user %q", name) }
func UserNameTaken(name string) *Error       { return Newf(KindUserNameTaken, "user %q", name) }
func UserKeyConflict(name string) *Error     { return Newf(KindUserKeyConflict, "user %q", name) }
func ServiceNotFound(name string) *Error     { return Newf(KindServiceNotFound, "service %q", name) }
func ServiceAlreadyRegistered(name string) *Error {
	return Newf(KindServiceAlreadyReg, "service %q", name)
}
func TaskNotFound(id uint64) *Error { return Newf(KindTaskNotFound, "task #%d", id) }
func StoreLoadFailed(err error) *Error {
	return Wrap(KindStoreLoadFailed, err, "")
}
func StoreSaveFailed(err error) *Error {
	return Wrap(KindStoreSaveFailed, err, "")
}
func DriverError(sub string, err error) *Error {
	return &Error{Kind: KindDriverError, Sub: sub, Err: err}
}
func OutOfMemory() *Error { return New(KindOutOfMemory, "") }

// ReplayRejected and RateLimited are dispatch-layer rejections (§9's
// replay-guard/rate-limiter additions), classified as DriverError per
// SPEC_FULL.md's "DriverError(RateLimited)" wording — they originate from
// the dispatcher's collaborators (bloom filter, token bucket), not from a
// console/display/clock/entropy device, but share the same "wrapped and
// propagated, scheduler logs and continues" handling §7 describes for
// DriverError(sub).
func ReplayRejected(hash string) *Error {
	return &Error{Kind: KindDriverError, Sub: "Replay", Detail: fmt.Sprintf("envelope hash %q already dispatched", hash)}
}
func RateLimited(author string) *Error {
	return &Error{Kind: KindDriverError, Sub: "RateLimited", Detail: fmt.Sprintf("author %q", author)}
}
