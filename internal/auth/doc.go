// Package auth provides authentication and authorisation for Doorman Core.
//
// It implements a 2-tier access model (authenticated user → admin) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Opaque bearer session tokens stored server-side in SQLite
//   - Expired-session sweep piggybacked on every session creation
//   - One-shot first-admin bootstrap, closed once an active admin exists
//   - External identity login via HS256 token verification
//
// The session token itself is the only proof of identity: there are no
// claims embedded in it and nothing for a client to decode. Validation
// is a single indexed lookup, and logout revokes immediately.
package auth
