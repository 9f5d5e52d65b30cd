// Package siemfeed provides native Go clients for pulling security events
// from SIEM and identity vendors into downstream analytics pipelines.
//
// Two vendor integrations are included: Exabeam Data Lake (interactive log
// search, package exabeam) and SailPoint IdentityNow (incremental event
// collection, package identitynow). The root package carries the pieces the
// vendor clients share: the event and cursor model, the fetch engine, the
// credential cache, the state store contract and the typed error taxonomy.
//
// # Features
//
//   - Cursor-based incremental collection with an advance-only watermark
//   - Cached bearer credentials that survive process restarts
//   - Modern Go 1.25+ iterators for streaming collection
//   - Typed errors for precise error handling
//   - Functional options for flexible configuration
//
// # Quick Start
//
//	store, err := statestore.NewFile("/var/lib/siemfeed")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := identitynow.NewClient(
//	    identitynow.WithBaseURL("https://tenant.api.identitynow.com"),
//	    identitynow.WithClientCredentials(clientID, clientSecret),
//	    identitynow.WithStateStore(store),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cursor, err := siemfeed.LoadCursor(ctx, store, "tenant")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	next, events, err := client.Fetch(ctx, cursor, 50000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	siemfeed.AnnotateEvents(events)
//	// ... push events, then persist the new watermark
//	if err := siemfeed.SaveCursor(ctx, store, "tenant", next); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Handling
//
// The package uses typed errors that can be inspected with errors.As:
//
//	_, _, err := client.Fetch(ctx, cursor, maxEvents)
//	if err != nil {
//	    var authErr *siemfeed.AuthenticationError
//	    if errors.As(err, &authErr) {
//	        // Credentials rejected; token exchange and session login
//	        // failures both land here.
//	    }
//	}
//
// # Streaming
//
// Use iterators when the consumer paces the collection:
//
//	for event, err := range client.Stream(ctx, cursor) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    process(event)
//	}
//
//	// Or collect a bounded batch
//	events, err := siemfeed.CollectN(client.Stream(ctx, cursor), 1000)
package siemfeed
