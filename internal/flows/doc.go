// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRegister, RunRefresh, RunValidate, etc.)
// accepts a typed dependency struct and returns results without side-effects
// beyond those dependencies. Mock dependencies are enough to test any branch,
// and the Engine type stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user store, password hasher, token
// manager, login throttle, session binding, audit and metrics. They do NOT own
// any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authcore.
//   - Perform I/O directly. All I/O is mediated through dependency funcs.
package flows
