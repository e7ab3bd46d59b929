// Package sanitizer normalizes user supplied strings before validation and
// storage.
//
// All functions are idempotent. Invalid input yields an empty string rather
// than an error so the validator reports it with field context.
package sanitizer
