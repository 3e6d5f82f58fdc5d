// Package upstream resolves and fetches the upstream SDK revision to mirror.
//
// The Resolver picks a reference: an explicit one is used as-is, otherwise
// the greatest strict MAJOR.MINOR.PATCH tag advertised by the remote wins.
// The Fetcher takes a single-revision shallow snapshot of that reference
// into a temporary workspace and determines its version, trying in order:
//
//  1. the reference itself, when it is a strict version tag
//  2. the version declaration in a known source file of the snapshot
//  3. the strict version tags that point at the fetched commit
//
// All git traffic goes through go-git; no git binary is required.
package upstream
