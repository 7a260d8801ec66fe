// Package securefs enforces the security boundary for all session file operations.
//
// The package has two components, built bottom-up:
//
//   - PathValidator: given a project root and a candidate path, produces a
//     canonical absolute path guaranteed to lie within the root, or fails with
//     a typed security error. Stateless after construction.
//   - FileCopier: copy, symlink creation, in-place encryption and decryption.
//     Every operation validates all paths it touches through PathValidator
//     before touching the filesystem, performs the action atomically, applies
//     a permission policy, and emits an audit record.
//
// # Validation Pipeline
//
// A candidate path passes through, in order:
//
//  1. Raw-string screening (null bytes, percent-encoded traversal,
//     backslash-mixed traversal, doubled separators adjacent to "..") before
//     any filesystem call
//  2. Pure lexical normalization (segment push/pop; rising above the root is
//     a traversal error, never a silent clamp)
//  3. Join with the project root and boundary containment check
//  4. OS canonicalization and a second boundary check for existing paths
//  5. A component-wise symlink safety pass that boundary-checks each
//     symlink's immediate target
//
// # Error Taxonomy
//
// Three tiers, matched with errors.As rather than message parsing:
//
//   - ArgumentError: structurally invalid call (empty path, bad key length)
//   - NotFoundError: a required path is absent
//   - SecurityError: boundary, traversal, symlink, encoding, ownership,
//     size, and cryptographic failures, each carrying a Reason drawn from a
//     fixed vocabulary
//
// # Atomic Writes
//
// All content writes stage into a uniquely named temporary sibling followed
// by a single rename. The destination is always either the previous complete
// content or the new complete content; a failed staging attempt removes the
// temporary file and leaves the destination directory untouched.
package securefs
