// Package hostprobe answers one question: can the dynamic loader on this
// host resolve a given dylib path right now? It backs the rewriter's
// -R/--auto-remove-dylibs flag.
package hostprobe

// Exists attempts a lazy, local dynamic-load resolution of path and
// releases the handle immediately on success. It returns true iff the
// loader succeeded; any resolution error (missing file, missing host
// support, load failure) is reported as false. This is advisory input
// only: a false result authorizes automatic removal, a true result does
// not forbid a caller from removing the dependency explicitly anyway.
func Exists(path string) bool {
	return exists(path)
}
