// Package status implements the tagged-result type used uniformly by the
// pool, broker, runner, service, and executor: a
// per-domain code enum paired with a human-readable message table.
package status

// Code is a per-domain status code. Domain packages define their own Code
// enums starting at OK and ending with a trailing count sentinel, exactly
// is conventional for every domain in this codebase.
type Code int

// OK is shared by every domain: code 0 always means success.
const OK Code = 0

// Table maps a Code to its human-readable message. It must have exactly
// as many entries as the domain's trailing COUNT sentinel.
type Table []string

// Status pairs a Code with the Table it was drawn from.
type Status struct {
	code  Code
	table Table
}

// New builds a Status from a code and the table it indexes into. A code
// outside the table's bounds renders as "unknown status".
func New(code Code, table Table) Status {
	return Status{code: code, table: table}
}

// Ok reports whether the status represents success.
func (s Status) Ok() bool { return s.code == OK }

// IsError is the negation of Ok.
func (s Status) IsError() bool { return !s.Ok() }

// Code returns the underlying domain code.
func (s Status) Code() Code { return s.code }

// Message returns the human-readable string for the status's code.
func (s Status) Message() string {
	if int(s.code) < 0 || int(s.code) >= len(s.table) {
		return "unknown status"
	}
	return s.table[s.code]
}

// Error implements the error interface so a Status can be returned or
// wrapped anywhere a Go error is expected, without losing its Code.
func (s Status) Error() string { return s.Message() }
