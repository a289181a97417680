package seed_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/memcore/internal/models"
	"github.com/vytor/memcore/internal/seed"
)

type call struct {
	op   string
	uid  models.UserID
	id   int32
	arg  int32
	name string
}

type recordingTarget struct {
	calls []call
}

func (r *recordingTarget) CreateUser(_ context.Context, uid models.UserID) {
	r.calls = append(r.calls, call{op: "user", uid: uid})
}

func (r *recordingTarget) CreateTopic(_ context.Context, uid models.UserID, tid models.TopicID, name string) error {
	r.calls = append(r.calls, call{op: "topic", uid: uid, id: int32(tid), name: name})
	return nil
}

func (r *recordingTarget) AddCard(_ context.Context, uid models.UserID, cid models.CardID, tid models.TopicID) error {
	r.calls = append(r.calls, call{op: "card", uid: uid, id: int32(cid), arg: int32(tid)})
	return nil
}

func TestDefault_Apply(t *testing.T) {
	target := &recordingTarget{}
	stats, err := seed.Default().Apply(context.Background(), target)

	require.NoError(t, err)
	assert.Equal(t, seed.Stats{Users: 1, Topics: 1, Cards: 2}, stats)
	assert.Equal(t, []call{
		{op: "user", uid: 1},
		{op: "topic", uid: 1, id: 100, name: "Sample topic"},
		{op: "card", uid: 1, id: 1, arg: 100},
		{op: "card", uid: 1, id: 2, arg: 100},
	}, target.calls)
}

func TestLoad_File(t *testing.T) {
	doc, err := seed.Load(filepath.Join("testdata", "two_users.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []models.UserID{1, 7}, doc.UserIDs())
	assert.Equal(t, "Kanji N5", doc.Users[1].Topics[0].Name)
	assert.Equal(t, seed.Card{ID: 10, TopicID: 3}, doc.Users[1].Cards[0])
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	doc, err := seed.Load("")
	require.NoError(t, err)
	assert.Equal(t, seed.Default(), doc)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := seed.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read seed file")
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "users:\n  - id: 1\n    deck: x\n", "field deck not found"},
		{"duplicate user", "users:\n  - id: 1\n  - id: 1\n", "duplicate user 1"},
		{"duplicate card", "users:\n  - id: 1\n    cards:\n      - id: 2\n      - id: 2\n", "duplicate card 2"},
		{"duplicate topic", "users:\n  - id: 1\n    topics:\n      - id: 5\n      - id: 5\n", "duplicate topic 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := seed.Parse([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
