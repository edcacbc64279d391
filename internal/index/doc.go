// Package index holds the in-memory catalog: every known folder with its
// name-sorted items, the tag and rating summary, autocomplete predictions,
// and the queue of changes waiting to be written to the database.
//
// State is the only entry point for mutating or querying the catalog and is
// safe for concurrent use. Folder entries are replaced by pointer swap under
// the index lock, so a query holding an old *catalog.FolderItem keeps
// reading a consistent snapshot. The summary has its own lock; no code path
// holds both.
//
// # Scanning
//
//	result := state.ScanItems(ctx, roots, index.ScanFlags{Metadata: true}, true)
//
// Folders that cannot be read mark their items offline and the scan moves
// on.
//
// # Querying
//
//	ctx, cancel := state.BeginQuery(ctx)
//	defer cancel()
//	counts := state.CountMatches(ctx, search.Parse("#beach @photo", state))
//
// Starting a query cancels the previous one. Cancellation is checked once
// per folder and a cancelled query returns what it found so far.
//
// # Write-back
//
// Save* methods update the in-memory item at once and queue a Write. The
// database goroutine drains the queue with DequeueAll and applies each batch
// in a single transaction.
package index
