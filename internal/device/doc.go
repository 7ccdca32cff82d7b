// Package device models the compute device a context dispatches folds to.
//
// A Device binds a backend, a detected instruction-set tier and a Queue of
// worker goroutines. Work is submitted as a grid of items split into
// workgroups; Dispatch blocks until every workgroup has run. There is no
// preemption: once a workgroup is on the queue it runs to completion.
//
// This build ships the CPU backend only. Selecting BackendMetal or
// BackendCUDA fails with ErrUnavailable, which callers surface at context
// creation time.
//
// The instruction-set tier is detected with golang.org/x/sys/cpu and can be
// forced down with the GRAINVDB_DEVICE_ISA environment variable (for example
// "generic" to select the portable scalar kernels).
package device
