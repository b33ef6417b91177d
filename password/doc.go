// Package password implements credential hashing and verification with Argon2id defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.Verify] also accepts bcrypt hashes ($2a$, $2b$, $2y$) so that
// credentials created by earlier systems keep working. [Argon2.NeedsRehash]
// reports true for those and for Argon2id hashes produced with weaker
// parameters, so the caller can re-hash after the next successful sign-in.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length, confirmation) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other goCred package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
