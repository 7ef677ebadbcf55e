// Package ratelimit implements a per-identity, per-path HTTP rate limiting
// middleware: rule matching, fixed- and sliding-window counter algorithms
// against a shared store, a blocking (penalty) mechanism, and the
// request-to-decision middleware flow including Retry-After semantics.
//
// The middleware itself only depends on two small interfaces — Backend
// (the counter store) and Authenticator (identity extraction) — so it can
// run against Redis, an in-process map, or anything else that satisfies
// Backend. Concrete backends live in ratelimit/backend/*; concrete
// authenticators live in ratelimit/authenticator.
package ratelimit
