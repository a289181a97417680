// Package seed loads the initial users, topics and cards used when the
// service starts without a snapshot.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/vytor/memcore/internal/models"
	"gopkg.in/yaml.v3"
)

type Document struct {
	Users []User `yaml:"users"`
}

type User struct {
	ID     int32   `yaml:"id"`
	Topics []Topic `yaml:"topics"`
	Cards  []Card  `yaml:"cards"`
}

type Topic struct {
	ID   int32  `yaml:"id"`
	Name string `yaml:"name"`
}

type Card struct {
	ID      int32 `yaml:"id"`
	TopicID int32 `yaml:"topic_id"`
}

// Target receives the seeded entities.
type Target interface {
	CreateUser(ctx context.Context, userID models.UserID)
	CreateTopic(ctx context.Context, userID models.UserID, topicID models.TopicID, name string) error
	AddCard(ctx context.Context, userID models.UserID, cardID models.CardID, topicID models.TopicID) error
}

// Stats counts what Apply created.
type Stats struct {
	Users  int
	Topics int
	Cards  int
}

// Default is one user with one topic and two cards.
func Default() *Document {
	return &Document{Users: []User{{
		ID:     1,
		Topics: []Topic{{ID: 100, Name: "Sample topic"}},
		Cards:  []Card{{ID: 1, TopicID: 100}, {ID: 2, TopicID: 100}},
	}}}
}

// Load reads a seed document from path, or returns Default when path is empty.
func Load(path string) (*Document, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed document, rejecting unknown fields and duplicate ids.
func Parse(data []byte) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed YAML: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return &doc, nil
}

func (d *Document) validate() error {
	users := make(map[int32]bool)
	for _, u := range d.Users {
		if users[u.ID] {
			return fmt.Errorf("duplicate user %d", u.ID)
		}
		users[u.ID] = true

		topics := make(map[int32]bool)
		for _, t := range u.Topics {
			if topics[t.ID] {
				return fmt.Errorf("user %d: duplicate topic %d", u.ID, t.ID)
			}
			topics[t.ID] = true
		}
		cards := make(map[int32]bool)
		for _, c := range u.Cards {
			if cards[c.ID] {
				return fmt.Errorf("user %d: duplicate card %d", u.ID, c.ID)
			}
			cards[c.ID] = true
		}
	}
	return nil
}

// UserIDs lists the seeded users in document order.
func (d *Document) UserIDs() []models.UserID {
	ids := make([]models.UserID, len(d.Users))
	for i, u := range d.Users {
		ids[i] = models.UserID(u.ID)
	}
	return ids
}

// Apply creates every user, then its topics, then its cards.
func (d *Document) Apply(ctx context.Context, target Target) (Stats, error) {
	var stats Stats
	for _, u := range d.Users {
		uid := models.UserID(u.ID)
		target.CreateUser(ctx, uid)
		stats.Users++
		for _, t := range u.Topics {
			if err := target.CreateTopic(ctx, uid, models.TopicID(t.ID), t.Name); err != nil {
				return stats, fmt.Errorf("seed topic %d for user %d: %w", t.ID, u.ID, err)
			}
			stats.Topics++
		}
		for _, c := range u.Cards {
			if err := target.AddCard(ctx, uid, models.CardID(c.ID), models.TopicID(c.TopicID)); err != nil {
				return stats, fmt.Errorf("seed card %d for user %d: %w", c.ID, u.ID, err)
			}
			stats.Cards++
		}
	}
	return stats, nil
}
