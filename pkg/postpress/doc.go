// Package postpress provides the post lifecycle service: a small content
// API core that coordinates validation, authorization, rate admission,
// image blob handling and record persistence for blog-style posts.
//
// The package is organized around two ports. Repository is the document
// store holding post records, and BlobStore is the remote image store
// addressed by URL. Pluggable implementations live in the repo/ and
// storage/ subpackages; the HTTP surface lives in api.
//
// Ordering guarantees enforced by the service:
//
//   - A new image is always uploaded before the record that references it
//     is written, so an upload failure never leaves a partial record.
//   - A replaced or deleted post's old image is removed only after the
//     record mutation has durably succeeded, and removal is best-effort:
//     failures are logged and never surfaced to the caller.
package postpress
