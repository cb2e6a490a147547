// Package rate provides the Redis-backed throttles used by the login and
// refresh flows.
//
// # Window semantics
//
// Fixed-window counters: a Lua script runs INCR and sets PEXPIRE on the first
// hit of each window. Key prefixes:
//   - ac:login:e:  login per-email
//   - ac:login:ip: login per-IP
//   - ac:refresh:  refresh per-account
//
// # What this package must NOT do
//
//   - Decide what a throttled caller sees; the engine maps ErrRateLimited.
//   - Be imported outside the authcore module.
package rate
