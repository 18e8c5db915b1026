// Package manifest patches a Cargo manifest for the duration of a release
// build and puts it back afterwards.
//
// # Usage
//
//	err := manifest.Patch("Cargo.toml", manifest.ReleaseSection, manifest.ReleaseProfile,
//	    func(s *manifest.Scope) error {
//	        return build()
//	    })
//
// Callers that need finer control use Open, EnsureSection and Restore directly.
//
// # Lifecycle
//
// A Scope moves through three states:
//
//  1. Opened: Open has read the file and captured its exact content.
//  2. Patched: zero or more EnsureSection calls, each rewriting the file.
//  3. Restored: Restore has written the captured content back. This state is
//     final; patching again needs a new Open.
//
// Restore never derives the original from the patched document. It always
// writes the bytes captured at Open.
//
// # Section scanning
//
// Only enough structure is recognized to patch one section: a header is a line
// equal to the header once trimmed, and a section body runs until a blank line,
// a line starting with '[' or the end of the file. Within the body the key of a
// line is the trimmed text before its first '=', or the whole trimmed line
// when it has none.
package manifest
