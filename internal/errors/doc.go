// Package errors provides structured, actionable errors for the lazyimg
// command-line tools.
//
// Library packages return plain Go errors. The CLI converts them into coded
// errors at its edges so that users see what went wrong, where (for config
// and HTML input files) and how to fix it.
//
// # Error Codes
//
// Each code (e.g. "L010") maps to a category, a short message and a longer
// explanation:
//   - L001-L019: configuration
//   - L020-L039: probing
//   - L040-L059: HTML rewriting
//   - L060-L079: serving
//   - L080-L099: command-line usage
//
// # Usage
//
//	err := errors.New("L002").
//	    WithLocation("lazyimg.json", 4, 17).
//	    WithSuggestion(`use a Go duration such as "1s"`)
//
//	errors.PrintError(err)
package errors
