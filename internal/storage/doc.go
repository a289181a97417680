// Package storage persists scheduler state as a snapshot plus a write-ahead
// log of completed reviews.
//
// All integers are little-endian. A WAL record is 20 bytes:
//
//	int32 userId | int32 cardId | int32 rating | int32 timestamp | uint32 crc32
//
// where crc32 is CRC-32/ISO-HDLC over the first 16 bytes. A snapshot is
//
//	int32 cardCount
//	cardCount x (int32 userId, int32 cardId, int32 topicId, float64 easeFactor,
//	             int32 interval, int32 repetitions, int32 nextReviewDate)
//
// optionally followed by a topic section: a version byte (1), int32
// topicCount, then per topic int32 userId, int32 topicId, int32 nameLen and
// nameLen bytes of UTF-8. A snapshot that ends after the card records has no
// topics.
//
// Recovery is LoadSnapshot followed by ReplayLog. Replay stops at the first
// record that is short or fails its checksum and drops everything after it.
package storage
