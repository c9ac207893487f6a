/*
Package pimring provides the modular-arithmetic and Number-Theoretic Transform (NTT)
substrate of a lattice-based homomorphic-encryption stack, together with an optional
offload path that executes the same vector primitives on processing-in-memory (PIM)
hardware. It is a pure Go implementation: residue vectors, Cooley-Tukey/Gentleman-Sande
butterfly networks, Bluestein's algorithm for arbitrary cyclotomic orders and the
Chinese-Remainder-Transform wrappers that cache their precomputed root-of-unity tables.
*/
package pimring
