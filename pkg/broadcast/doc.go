// Package broadcast fans out successive values of a piece of state to any
// number of readers.
//
// A Feed holds the latest value. Subscribe delivers that value first, then
// every later Publish. Each subscriber buffers a single value: when a reader
// falls behind, the unread value is replaced by the newer one, so Publish
// never blocks and readers never act on stale state.
//
//	feed := broadcast.NewFeed(initial)
//	sub := feed.Subscribe(ctx)
//	for v := range sub.Receive() {
//		render(v)
//	}
//
// Subscriptions end when their context is done, when Close is called on the
// subscriber, or when the feed itself is closed.
package broadcast
