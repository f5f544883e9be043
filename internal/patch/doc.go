// Package patch implements the JSON-Pointer patch codec used to diff and
// apply record mutations over JMAP: building a set of RFC 6901 pointer ->
// replacement-value patches from a before/after pair, applying such a patch
// back onto an object, and validating that a pointer resolves within a
// given object before it is trusted.
//
// Arrays are never recursed into — they are treated as atomic values, same
// as any other non-object leaf.
package patch
