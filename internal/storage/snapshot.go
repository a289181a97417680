package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/vytor/memcore/internal/models"
)

const (
	topicSectionVersion = 1
	maxTopicNameLen     = 1 << 16
)

// CardSource provides the state written to a snapshot.
type CardSource interface {
	Users() []models.UserCards
}

// CardLoader receives the state read from a snapshot.
type CardLoader interface {
	CreateUser(uid models.UserID)
	AddCard(uid models.UserID, card models.Card)
	CreateTopic(uid models.UserID, topic models.Topic)
}

// SnapshotStats counts what a snapshot held.
type SnapshotStats struct {
	Users  int
	Cards  int
	Topics int
}

// cardRecord is the fixed 32-byte snapshot layout of one card.
type cardRecord struct {
	UserID         int32
	CardID         int32
	TopicID        int32
	EaseFactor     float64
	Interval       int32
	Repetitions    int32
	NextReviewDate int32
}

type topicHeader struct {
	UserID  int32
	TopicID int32
	NameLen int32
}

// WriteSnapshot encodes users to w.
func WriteSnapshot(w io.Writer, users []models.UserCards) (SnapshotStats, error) {
	var stats SnapshotStats
	for _, u := range users {
		stats.Users++
		stats.Cards += len(u.Cards)
		stats.Topics += len(u.Topics)
	}
	if stats.Cards > math.MaxInt32 || stats.Topics > math.MaxInt32 {
		return stats, fmt.Errorf("snapshot too large: %d cards, %d topics", stats.Cards, stats.Topics)
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, int32(stats.Cards)); err != nil {
		return stats, err
	}
	for _, u := range users {
		for _, c := range u.Cards {
			rec := cardRecord{
				UserID:         int32(u.UserID),
				CardID:         int32(c.ID),
				TopicID:        int32(c.TopicID),
				EaseFactor:     c.EaseFactor,
				Interval:       c.Interval,
				Repetitions:    c.Repetitions,
				NextReviewDate: int32(c.NextReviewDate),
			}
			if err := binary.Write(bw, binary.LittleEndian, rec); err != nil {
				return stats, err
			}
		}
	}

	if err := bw.WriteByte(topicSectionVersion); err != nil {
		return stats, err
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(stats.Topics)); err != nil {
		return stats, err
	}
	for _, u := range users {
		for _, t := range u.Topics {
			if len(t.Name) > maxTopicNameLen {
				return stats, fmt.Errorf("topic %d name too long: %d bytes", t.ID, len(t.Name))
			}
			hdr := topicHeader{UserID: int32(u.UserID), TopicID: int32(t.ID), NameLen: int32(len(t.Name))}
			if err := binary.Write(bw, binary.LittleEndian, hdr); err != nil {
				return stats, err
			}
			if _, err := bw.WriteString(t.Name); err != nil {
				return stats, err
			}
		}
	}
	return stats, bw.Flush()
}

// ReadSnapshot decodes a snapshot from r into load, creating each user
// before adding its cards.
func ReadSnapshot(r io.Reader, load CardLoader) (SnapshotStats, error) {
	var stats SnapshotStats
	br := bufio.NewReader(r)
	seen := make(map[models.UserID]struct{})
	noteUser := func(uid models.UserID) {
		if _, ok := seen[uid]; !ok {
			seen[uid] = struct{}{}
			stats.Users++
		}
	}

	var total int32
	if err := binary.Read(br, binary.LittleEndian, &total); err != nil {
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		return stats, fmt.Errorf("%w: card count: %v", ErrCorruptSnapshot, err)
	}
	if total < 0 {
		return stats, fmt.Errorf("%w: negative card count %d", ErrCorruptSnapshot, total)
	}

	for i := int32(0); i < total; i++ {
		var rec cardRecord
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return stats, fmt.Errorf("%w: card %d of %d: %v", ErrCorruptSnapshot, i+1, total, err)
		}
		uid := models.UserID(rec.UserID)
		load.CreateUser(uid)
		load.AddCard(uid, models.Card{
			ID:             models.CardID(rec.CardID),
			TopicID:        models.TopicID(rec.TopicID),
			EaseFactor:     rec.EaseFactor,
			Interval:       rec.Interval,
			Repetitions:    rec.Repetitions,
			NextReviewDate: models.Date(rec.NextReviewDate),
		})
		noteUser(uid)
		stats.Cards++
	}

	version, err := br.ReadByte()
	if errors.Is(err, io.EOF) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("%w: section version: %v", ErrCorruptSnapshot, err)
	}
	if version != topicSectionVersion {
		return stats, fmt.Errorf("%w: version %d", ErrUnsupportedSnapshot, version)
	}

	var topics int32
	if err := binary.Read(br, binary.LittleEndian, &topics); err != nil {
		return stats, fmt.Errorf("%w: topic count: %v", ErrCorruptSnapshot, err)
	}
	if topics < 0 {
		return stats, fmt.Errorf("%w: negative topic count %d", ErrCorruptSnapshot, topics)
	}
	for i := int32(0); i < topics; i++ {
		var hdr topicHeader
		if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
			return stats, fmt.Errorf("%w: topic %d of %d: %v", ErrCorruptSnapshot, i+1, topics, err)
		}
		if hdr.NameLen < 0 || hdr.NameLen > maxTopicNameLen {
			return stats, fmt.Errorf("%w: topic name length %d", ErrCorruptSnapshot, hdr.NameLen)
		}
		name := make([]byte, hdr.NameLen)
		if _, err := io.ReadFull(br, name); err != nil {
			return stats, fmt.Errorf("%w: topic %d name: %v", ErrCorruptSnapshot, hdr.TopicID, err)
		}
		uid := models.UserID(hdr.UserID)
		load.CreateTopic(uid, models.Topic{ID: models.TopicID(hdr.TopicID), Name: string(name)})
		noteUser(uid)
		stats.Topics++
	}
	return stats, nil
}
