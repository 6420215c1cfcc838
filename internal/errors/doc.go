// Package errors provides coded, actionable error messages for the vroute CLI.
//
// Library packages return plain sentinel and struct errors; the CLI turns
// them into *Error values with Classify so they print with a code, a hint
// and, where known, the file location:
//
//	_, err := router.Build(decls)
//	for _, e := range errors.Classify(err) {
//	    fmt.Print(e.Format())
//	}
//	// Output:
//	// ERROR R201: Duplicate route
//	//
//	//   Two routes normalize to the same pattern and would shadow each other.
//	//
//	//   Cause: router: duplicate route: "/users/[user]" conflicts with "/users/[id]"
//	//
//	//   Hint: Remove one of the routes or merge their handlers into one bundle.
//
// # Error Codes
//
//   - R1xx: pattern syntax
//   - R2xx: route table construction
//   - R3xx: configuration
//   - R4xx: route manifests
//   - R5xx: command line usage
package errors
