// Package policy converts between the two policy representations used by the
// optimizer:
//
//   - a global carbon tax path, one region-uniform price per period
//   - a mitigation matrix, one abatement fraction per period and region
//
// The link between them is the backstop price B[t,r], the price at which a
// region abates all of its emissions. A tax τ maps to the mitigation rate
//
//	M[t,r] = clamp((τ[t] / B[t,r])^(1/(θ-1)), 0, 1)
//
// where θ is the abatement-cost exponent ([DefaultTheta] for the standard
// model). Row 0 is the base period and always carries zero tax and zero
// mitigation. Periods past the optimized horizon are assumed fully
// decarbonized.
//
// All functions are pure: inputs are never mutated and identical inputs give
// bit-identical outputs.
package policy
