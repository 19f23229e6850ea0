// Package monitoring carries the pipeline's diagnostic logging hook.
package monitoring

import "log"

// Logf is the diagnostic logger shared by the sampler, the aggregation
// worker, and the Label Studio round-trip. It defaults to log.Printf;
// tests replace it through SetLogger to mute or capture output.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
