// Package executor implements the bounded, insertion-ordered service
// registry and its best-effort start_all/stop_all drivers.
package executor

import "github.com/adred-codev/etfw/internal/status"

const (
	CodeOK status.Code = iota // == status.OK
	CodeIDTaken
	CodeRegistryFull
	CodeNotFound
	count
)

var table = status.Table{
	CodeOK:           "ok",
	CodeIDTaken:      "service id already registered",
	CodeRegistryFull: "executor registry full",
	CodeNotFound:     "service id not registered",
}

func newStatus(c status.Code) status.Status {
	return status.New(c, table)
}
