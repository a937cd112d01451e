// Package progress implements synthetic progress reporting for long-running
// enhancement calls. The value is cosmetic: it advances on a fixed tick while
// the remote call is in flight, never decreases, and holds below a ceiling
// until the call actually resolves.
package progress
