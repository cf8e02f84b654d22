// Package errors provides the classified error primitives used across SiteBuilder.
//
// Every task wraps the error returned by its collaborator (Sass compiler, template
// renderer, bundler, ...) in a ClassifiedError that records which part of the
// pipeline failed and which file was being processed. The original cause stays
// reachable through errors.Is / errors.As.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryStyles, "compile stylesheet").
//		WithContext("path", "src/styles/main.scss").
//		Build()
package errors
