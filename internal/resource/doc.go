// Package resource governs the scarce resources of a context.
//
//   - Device memory: a byte budget for manifold buffers. Reservations are
//     fail-fast; an exhausted budget is an allocation failure, never a wait.
//   - Dispatch slot: at most one fold in flight per context.
//   - Artifact IO: a token bucket throttling kernel artifact reads so a large
//     remote artifact does not saturate a shared link.
//
// All methods are safe for concurrent use, and a nil *Controller is a valid,
// unlimited controller.
package resource
