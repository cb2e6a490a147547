// Package password implements one-way credential hashing with bcrypt and
// Argon2id.
//
// # Output formats
//
// bcrypt hashes use the modular crypt format ($2a$<cost>$...). Argon2id hashes
// are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Both hashers report [Hasher.NeedsUpgrade] when a stored hash was produced
// with weaker parameters, and [Mux] lets a deployment move from one algorithm
// to the other by re-hashing on the next successful login.
//
// # What this package must NOT do
//
//   - Enforce password policy. Minimum length lives in the root engine.
//   - Store or retrieve passwords.
//   - Log plaintext passwords.
package password
