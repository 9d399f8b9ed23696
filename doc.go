// Package staged keeps the client-side state of a record editor: a committed
// baseline, a staged working copy, and the diff between them.
//
// A Session owns three named trees. The committed tree is seeded once from a
// baseline.Source and never changes. The staged tree starts from durable
// storage when a readable snapshot exists, otherwise from a copy of
// committed, and is the only tree that can be written. The diff tree holds
// the diff.Result of comparing the two and is recomputed after every write.
//
// Consumers work through cursors bound to one address of one tree:
//
//	hp, cur, err := session.Use(staged.StoreStaged, path.MustParse("features[1].hp"))
//	err = cur.Swap(ctx, func(old any) any { return old.(int) + 10 })
//
// A staged write serializes the staged tree to storage, recomputes the diff,
// and notifies every subscriber whose address overlaps the written one,
// all before Swap returns. Storage failures are logged and counted; the
// in-memory state stays authoritative.
package staged
