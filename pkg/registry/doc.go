// Package registry implements rule creation.
//
// Submit takes a wire-format document through validation, region
// extraction and conflict detection before persisting it. The check and the
// insert for one lender run under a per-lender lock, and inside the store's
// own transaction when the store supports it, so of any set of concurrent
// conflicting submissions exactly one is stored.
//
//	reg, err := registry.New(st, registry.Config{Catalog: catalog},
//		registry.WithLogger(logger),
//		registry.WithMetrics(collector),
//	)
//	res, err := reg.Submit(ctx, body)
package registry
