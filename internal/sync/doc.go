// Package sync runs the end-to-end type sync: resolve an upstream ref, fetch
// a snapshot, mirror its type tree into the destination package, regenerate
// the forwarding proxies and record the upstream version.
//
// # Steps
//
// Each step is wrapped in the error it returns, so callers can tell where a
// run stopped:
//
//	result, err := syncer.Run(ctx, sync.Options{Repository: repo})
//	// err: "fetch: upstream fetch failed: ..."
//
// Steps are, in order: resolve, fetch, backup (optional), mirror, proxy and
// version. The fetched snapshot is removed whether the run succeeds or not.
//
// # Progress Reporting
//
// Progress can be tracked by providing a ProgressCallback in Config:
//
//	cfg.Progress = func(event sync.ProgressEvent) error {
//	    fmt.Printf("%s: %s\n", event.Step, event.Message)
//	    return nil // Return error to cancel the run
//	}
//
// # Dry Run
//
// With Options.DryRun the run stops after fetching and reports what the
// mirror step would remove and copy. The destination is never touched.
package sync
