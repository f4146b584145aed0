// Package textutil implements the case-insensitive subject substitution
// behind the global_subject_swap edit operation.
//
// Subject matching uses Unicode case folding via x/text/search rather than
// ASCII lowering, so descriptions containing non-ASCII subjects fold
// correctly.
package textutil
