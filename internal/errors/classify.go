package errors

import (
	goerrors "errors"

	"github.com/vango-dev/vroute/pkg/fsroutes"
	"github.com/vango-dev/vroute/pkg/manifest"
	"github.com/vango-dev/vroute/pkg/pattern"
	"github.com/vango-dev/vroute/pkg/router"
)

// sentinelCodes maps library sentinel errors to codes, most specific first.
var sentinelCodes = []struct {
	err  error
	code string
}{
	{pattern.ErrInvalidSegment, "R101"},
	{pattern.ErrMisplacedCatchAll, "R102"},
	{pattern.ErrDuplicateParam, "R103"},
	{pattern.ErrMissingParam, "R104"},
	{router.ErrDuplicateExact, "R201"},
	{router.ErrAmbiguousCatchAll, "R202"},
	{router.ErrEmptyBundle, "R203"},
	{router.ErrBadPath, "R207"},
	{manifest.ErrSourceUnavailable, "R401"},
	{manifest.ErrInvalidDocument, "R402"},
	{manifest.ErrUnknownHandler, "R403"},
	{manifest.ErrUnknownMiddleware, "R404"},
}

// Classify converts err into coded errors. Aggregates (router.BuildError and
// errors.Join results) are flattened so each problem is reported on its own.
// An *Error anywhere in the chain is returned unchanged.
func Classify(err error) []*Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return []*Error{e}
	}
	if multi, ok := err.(interface{ Unwrap() []error }); ok && !isLeaf(err) {
		var out []*Error
		for _, inner := range multi.Unwrap() {
			out = append(out, Classify(inner)...)
		}
		return out
	}
	if e, ok := asError(err); ok {
		return []*Error{e}
	}
	return []*Error{classifyOne(err)}
}

// isLeaf reports errors that unwrap to several causes but describe a single
// problem.
func isLeaf(err error) bool {
	if _, ok := err.(*manifest.SyntaxError); ok {
		return true
	}
	return goerrors.Is(err, router.ErrBadPath)
}

func classifyOne(err error) *Error {
	var out *Error
	for _, sc := range sentinelCodes {
		if goerrors.Is(err, sc.err) {
			out = New(sc.code).Wrap(err)
			break
		}
	}

	var fe *fsroutes.FileError
	if goerrors.As(err, &fe) {
		if out == nil || out.Category == CategoryPattern {
			out = New("R204").Wrap(err)
		}
		out.WithFile(fe.File)
	}

	if out == nil {
		out = &Error{Category: CategoryCLI, Message: err.Error()}
	}
	return out
}

// ForManifest classifies a manifest error and attaches the manifest file
// location to syntax errors.
func ForManifest(err error, file string) []*Error {
	errs := Classify(err)
	var se *manifest.SyntaxError
	if file != "" && goerrors.As(err, &se) {
		for _, e := range errs {
			if e.Code == "R402" {
				e.WithLocation(file, se.Line, se.Column)
			}
		}
	}
	return errs
}
