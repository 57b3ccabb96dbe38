package ageclient

import "github.com/ageclient/ageclient/internal/xerrors"

// Kind classifies an error into the library's closed error taxonomy.
type Kind = xerrors.Kind

const (
	KindConfig               = xerrors.KindConfig
	KindConnection           = xerrors.KindConnection
	KindAcquireTimeout       = xerrors.KindAcquireTimeout
	KindStatement            = xerrors.KindStatement
	KindCypher               = xerrors.KindCypher
	KindValidation           = xerrors.KindValidation
	KindReferentialIntegrity = xerrors.KindReferentialIntegrity
	KindParamStaging         = xerrors.KindParamStaging
	KindTransaction          = xerrors.KindTransaction
	KindCancelled            = xerrors.KindCancelled
)

// Error is the structured error type returned across the public API.
// It always carries a Kind, a human message, an optional wrapped cause,
// and a context map for diagnostics (statement text, parameter keys,
// graph name). Parameter values are never placed in Context.
type Error = xerrors.Error

// NewError builds an *Error with the given kind, message and optional cause.
func NewError(kind Kind, message string, cause error, context map[string]any) *Error {
	return xerrors.New(kind, message, cause, context)
}

// Sentinels usable with errors.Is(err, ageclient.ErrAcquireTimeout) etc.
var (
	ErrConfig               = &Error{Kind: KindConfig}
	ErrConnection           = &Error{Kind: KindConnection}
	ErrAcquireTimeout       = &Error{Kind: KindAcquireTimeout}
	ErrStatement            = &Error{Kind: KindStatement}
	ErrCypher               = &Error{Kind: KindCypher}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrReferentialIntegrity = &Error{Kind: KindReferentialIntegrity}
	ErrParamStaging         = &Error{Kind: KindParamStaging}
	ErrTransaction          = &Error{Kind: KindTransaction}
	ErrCancelled            = &Error{Kind: KindCancelled}
)
