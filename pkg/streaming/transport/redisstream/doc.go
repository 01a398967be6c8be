// Package redisstream stores a byte stream in a Redis stream key.
//
// The sink side appends one entry per chunk (field "data"); a corked batch
// is appended in one MULTI/EXEC transaction, and End appends an entry with
// an "eof" field. The source side reads entries with XREAD only while its
// consumer wants more, and ends at the eof entry.
//
//	w, _ := redisstream.NewWritable(cfg, writable.DefaultConfig())
//	r, _ := redisstream.NewReadable(ctx, cfg, readable.DefaultConfig())
package redisstream
