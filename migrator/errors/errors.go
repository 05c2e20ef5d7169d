package errors

import (
	"encoding/json"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

type Kind string

//Error kinds of the migrator
const (
	KindConfiguration Kind = "configuration"
	KindDiscovery     Kind = "discovery"
	KindApplication   Kind = "application"
	KindTransport     Kind = "transport"
)

//Error codes
const (
	ErrServiceDomainMissing = "service_domain_missing"
	ErrServiceSecretMissing = "service_secret_missing"
	ErrBadPattern           = "bad_pattern"
	ErrWrongOrderingPrefix  = "wrong_ordering_prefix"
	ErrDuplicatedOrdering   = "duplicated_ordering_prefix"
	ErrMigrationRead        = "migration_read_error"
	ErrInvalidDescription   = "invalid_description"
	ErrMigrationFailed      = "migration_failed"
	ErrRecordUploadFailed   = "record_upload_failed"
	ErrWrongRQL             = "wrong_rql"
	ErrRequestFailed        = "request_failed"
	ErrFixtureNameNotFound  = "fixture_name_not_found"
	ErrMigrationFileExists  = "migration_file_exists"
)

//Codes reported by the custodian API
const (
	RemoteMigrationAlreadyApplied = "migration_already_applied"
	RemoteDuplicatedValue         = "duplicated_value_error"
)

type MigratorError struct {
	Kind  Kind
	Code  string
	Msg   string
	Data  interface{}
	Fatal bool
}

func (e *MigratorError) Error() string {
	return fmt.Sprintf("Migrator error: Kind = '%s', Code = '%s', Msg = '%s'", e.Kind, e.Code, e.Msg)
}

func newError(kind Kind, code string, msg string, args ...interface{}) *MigratorError {
	return &MigratorError{Kind: kind, Code: code, Msg: fmt.Sprintf(msg, args...)}
}

func NewConfigurationError(code string, msg string, args ...interface{}) *MigratorError {
	return newError(KindConfiguration, code, msg, args...)
}

func NewDiscoveryError(code string, msg string, args ...interface{}) *MigratorError {
	return newError(KindDiscovery, code, msg, args...)
}

func NewApplicationError(code string, msg string, args ...interface{}) *MigratorError {
	return newError(KindApplication, code, msg, args...)
}

func NewTransportError(cause error, msg string, args ...interface{}) *MigratorError {
	e := newError(KindTransport, ErrRequestFailed, msg, args...)
	e.Data = cause.Error()
	return e
}

//NewFatalError marks a failure which must stop the whole run.
func NewFatalError(code string, data interface{}, msg string, args ...interface{}) *MigratorError {
	e := newError(KindApplication, code, msg, args...)
	e.Data = data
	e.Fatal = true
	return e
}

//As returns the MigratorError found in the chain of err, if any.
func As(err error) (*MigratorError, bool) {
	var migratorError *MigratorError
	if pkgerrors.As(err, &migratorError) {
		return migratorError, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	if e, ok := As(err); ok {
		return e.Kind == kind
	}
	return false
}

func IsFatal(err error) bool {
	if e, ok := As(err); ok {
		return e.Fatal
	}
	return false
}

//Error body of the custodian API. The server serializes typed errors as an object
//{"Code": ..., "Msg": ...} and falls back to a bare string for the rest; any other value
//is kept verbatim as the message.
type RemoteError struct {
	Code string      `json:"Code"`
	Msg  string      `json:"Msg"`
	Data interface{} `json:"Data,omitempty"`
}

func (e *RemoteError) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err == nil {
		e.Msg = text
		return nil
	}
	type plain RemoteError
	var decoded plain
	if err := json.Unmarshal(b, &decoded); err != nil {
		e.Msg = string(b)
		return nil
	}
	*e = RemoteError(decoded)
	return nil
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("Remote error: Code = '%s', Msg = '%s'", e.Code, e.Msg)
}
