// Package keymutex provides mutual exclusion keyed by string, typically a
// user id. Mutex works inside one process; pkg/redis offers a Locker with the
// same interface for deployments with several instances.
package keymutex
