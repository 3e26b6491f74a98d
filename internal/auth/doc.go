// Package auth provides bearer-token authentication for docgate.
//
// # Tokens
//
// MCP clients authenticate with JWT tokens signed HS256 using the configured
// jwt_secret. A token carries:
//
//   - iss: always "docgate"; tokens minted elsewhere are rejected
//   - sub: the client identity, surfaced to logs and sessions
//   - iat/exp: issue and expiry times
//
// Generate a token for a client:
//
//	verifier := auth.NewJWTVerifier(secret)
//	token, err := verifier.Generate("ci-bot", 24*time.Hour)
//
// The MCP server verifies tokens through the TokenVerifier interface, so
// tests can substitute a fake without minting real JWTs.
package auth
