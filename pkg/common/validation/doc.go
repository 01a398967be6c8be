// Package validation checks configuration values and reports failures as
// ValidationError with a module, a field and a hint, so that config
// structs across flowio fail the same way.
package validation
