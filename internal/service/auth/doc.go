// Package auth issues and verifies session tokens and hashes passwords.
// Tokens are stateless HS256 JWTs; logout happens on the client.
package auth
