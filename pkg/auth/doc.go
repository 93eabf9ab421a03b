// Package auth decides who is making a request and what it may do.
//
// # Key Components
//
// Hasher: bcrypt password hashing with bounded concurrency.
//
//	hasher := auth.NewHasher(bcrypt.DefaultCost, 0)
//	hashed, err := hasher.Hash(ctx, "secret1")
//	ok := hasher.Verify(ctx, "secret1", hashed)
//
// TokenService: HS256 bearer tokens carrying the subject email and an expiry.
// Every verification failure is the same ErrInvalidToken.
//
//	tokens, err := auth.NewTokenService(secret, time.Hour)
//	token, err := tokens.Issue("a@x.com", 0)
//	email, err := tokens.Verify(token)
//
// APIKeyIssuer: assigns each identity one random key, exactly once.
//
// Resolver: turns request credentials into a *User. An API key, when
// present, takes precedence over a bearer token. Failures are *AuthError
// values whose Reason is kept for logs and metrics while errors.Is(err,
// ErrUnauthorized) holds for all of them.
//
// RequireRole: strict role equality, no hierarchy.
//
// AccountService: registration and login on top of a UserStore.
//
// # Related Packages
//
//   - pkg/middleware: admission limiting and HTTP credential extraction
//   - pkg/storage: persistence backends for UserStore
package auth
