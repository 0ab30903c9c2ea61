package service

import "github.com/adred-codev/etfw/internal/status"

// Status codes returned by Service's public operations.
// OK is shared with status.OK so zero-value statuses compare equal across
// packages.
const (
	CodeOK status.Code = iota // == status.OK
	CodeAlreadyInit
	CodeUninitErr
	CodeAlreadyStarted
	CodeStopped
	CodeChildRegistryFull
	count
)

var table = status.Table{
	CodeOK:                "ok",
	CodeAlreadyInit:       "service already initialized",
	CodeUninitErr:         "service not initialized",
	CodeAlreadyStarted:    "service already started",
	CodeStopped:           "service is stopped",
	CodeChildRegistryFull: "child registry full",
}

func newStatus(c status.Code) status.Status {
	return status.New(c, table)
}
