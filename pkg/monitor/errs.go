package monitor

import "errors"

// ErrNoNIC indicates that none of the requested interface names exist on
// this host. Raised at construction, before the poll loop starts.
var ErrNoNIC = errors.New("monitor: no NIC to monitor")
