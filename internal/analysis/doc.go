// Package analysis characterises recorded pendulum trajectories.
//
//   - [PowerSpectrum] and [DominantFrequency]: swing frequency of a series
//   - [LyapunovEstimate]: divergence rate of two nearby releases
//
// # Chaos Detection
//
// A clearly positive Lyapunov estimate indicates chaotic motion:
//
//	lambda := analysis.LyapunovEstimate(p, 1e-6, 600)
//	if lambda > 0 {
//	    // neighbouring releases separate exponentially
//	}
package analysis
