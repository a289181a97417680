package storage

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/vytor/memcore/internal/models"
)

// RecordSize is the encoded size of one WAL record.
const RecordSize = 20

const checksummedBytes = 16

// Record is one completed review in the write-ahead log.
type Record struct {
	UserID    models.UserID
	CardID    models.CardID
	Rating    int32
	Timestamp int32
	Checksum  uint32
}

// Checksum returns the CRC-32/ISO-HDLC of the record's first 16 bytes.
func Checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b[:checksummedBytes])
}

// NewRecord builds a record with its checksum filled in.
func NewRecord(uid models.UserID, cid models.CardID, rating, timestamp int32) Record {
	r := Record{UserID: uid, CardID: cid, Rating: rating, Timestamp: timestamp}
	var buf [RecordSize]byte
	r.encode(buf[:])
	r.Checksum = binary.LittleEndian.Uint32(buf[checksummedBytes:])
	return r
}

// encode writes the record into b, computing the checksum from the fields.
func (r Record) encode(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], uint32(r.UserID))
	binary.LittleEndian.PutUint32(b[4:], uint32(r.CardID))
	binary.LittleEndian.PutUint32(b[8:], uint32(r.Rating))
	binary.LittleEndian.PutUint32(b[12:], uint32(r.Timestamp))
	binary.LittleEndian.PutUint32(b[16:], Checksum(b))
}

// decodeRecord parses b and reports whether the stored checksum matches.
func decodeRecord(b []byte) (Record, bool) {
	r := Record{
		UserID:    models.UserID(int32(binary.LittleEndian.Uint32(b[0:]))),
		CardID:    models.CardID(int32(binary.LittleEndian.Uint32(b[4:]))),
		Rating:    int32(binary.LittleEndian.Uint32(b[8:])),
		Timestamp: int32(binary.LittleEndian.Uint32(b[12:])),
		Checksum:  binary.LittleEndian.Uint32(b[16:]),
	}
	return r, r.Checksum == Checksum(b)
}
