// Package errors provides the classified error primitives used across docweave.
//
// Every failure that crosses a package boundary is a ClassifiedError carrying a
// category (link resolution, parse, render, registry, ...), a severity and an
// optional retry hint. Errors are constructed with the fluent ErrorBuilder:
//
//	err := errors.NewError(errors.CategoryRegistry, "persist entry failed").
//		WithSeverity(errors.SeverityError).
//		WithContext("logical_path", path).
//		WithCause(originalErr).
//		Build()
//
// Packages declare their sentinel errors as pre-built ClassifiedError values;
// errors.Is matches any derived error that shares category and message, so
// WithContext can decorate a sentinel without breaking comparisons.
package errors
