// Package streaming writes long JSON array responses to HTTP clients.
//
// Search results are produced while the catalog is walked, so the response
// is written one element at a time instead of being built in memory.
// ArrayWriter keeps the array well formed, flushes every few elements so
// clients can render partial results, and gives up on clients that stop
// reading.
//
// # Usage
//
//	out := streaming.NewArrayWriter(r.Context(), w, streaming.DefaultConfig())
//	state.QueryItems(out.Context(), q, nil, func(hit index.Hit) bool {
//		return out.Add(toResponse(hit)) == nil
//	})
//	if err := out.Close(); err != nil {
//		// the client went away; the array was left unterminated
//	}
//
// # Timeouts
//
// The HTTP server runs without a write timeout so that large result sets
// can stream. Each write instead gets its own deadline through
// http.ResponseController, so a stalled client fails the next write after
// Config.WriteTimeout. Writers that cannot carry deadlines, such as
// httptest.ResponseRecorder, are written to without one.
//
// # Errors
//
//   - ErrWriteTimeout: a write hit its deadline
//   - ErrClientGone: the connection failed
//   - ErrStreamCanceled: the stream's context was cancelled, or Add was
//     called after Close
//
// Every aborted stream increments media_catalog_stream_aborts_total with
// the matching reason label.
package streaming
