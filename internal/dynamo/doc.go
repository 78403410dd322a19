// Package dynamo provides the core value types for the 3D double pendulum.
//
// The package defines the data that flows between the integrator and its
// collaborators:
//
//   - [Vec3]: immutable 3D vector, every operation returns a new value
//   - [Params]: per-run physical parameters and initial spherical angles
//   - [State]: bob positions plus the bounded trail of bob 2
//
// The pivot (bob 0) is always the origin and is never stored.
//
// # Thread Safety
//
// [Params] and [Vec3] are plain values. A [State] owns its trail slice; use
// [State.Clone] before handing one to another goroutine.
package dynamo
