// Package pattern compiles route patterns written in bracket syntax.
//
// A pattern is a sequence of "/"-delimited segments:
//
//	about          literal, matches "about" exactly
//	[id]           required parameter, one segment
//	[[lang]]       optional parameter, zero or one segment
//	[...slug]      catch-all, one or more trailing segments
//	[[...path]]    optional catch-all, zero or more trailing segments
//
// Compile validates the pattern and computes its specificity key, which the
// router uses to order overlapping patterns:
//
//	p, err := pattern.Compile("/docs/[...slug]")
//	if errors.Is(err, pattern.ErrMisplacedCatchAll) {
//	    // catch-all was not the last segment
//	}
//
// The key compares leading literals, then required parameters, then
// whether an optional segment is present, then whether a catch-all is
// present. An optional segment weighs more than a catch-all, so a root
// "/[[...path]]" is tried before "/[[lang]]/about" and shadows it: both
// "/about" and "/en/about" resolve to the catch-all. Give such routes a
// leading literal ("/site/[[...path]]") to keep them apart.
//
// Compiled patterns are immutable and safe for concurrent use.
package pattern
