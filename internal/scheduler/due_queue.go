package scheduler

import (
	"container/heap"

	"github.com/vytor/memcore/internal/models"
)

type dueEntry struct {
	date  models.Date
	card  models.CardID
	index int
}

// entryHeap orders entries by (date, card) ascending.
type entryHeap []*dueEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].date != h[j].date {
		return h[i].date < h[j].date
	}
	return h[i].card < h[j].card
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*dueEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// dueQueue is an indexed min-heap holding at most one entry per card.
// All operations are O(log n).
type dueQueue struct {
	entries entryHeap
	byCard  map[models.CardID]*dueEntry
}

func newDueQueue() *dueQueue {
	return &dueQueue{byCard: make(map[models.CardID]*dueEntry)}
}

func (q *dueQueue) Len() int { return len(q.entries) }

// schedule inserts card at date, superseding any entry the card already has.
func (q *dueQueue) schedule(card models.CardID, date models.Date) {
	if e, ok := q.byCard[card]; ok {
		e.date = date
		heap.Fix(&q.entries, e.index)
		return
	}
	e := &dueEntry{date: date, card: card}
	heap.Push(&q.entries, e)
	q.byCard[card] = e
}

func (q *dueQueue) contains(card models.CardID) bool {
	_, ok := q.byCard[card]
	return ok
}

// popDue removes and returns the minimum entry if its date is <= date.
func (q *dueQueue) popDue(date models.Date) (models.CardID, bool) {
	if len(q.entries) == 0 || q.entries[0].date > date {
		return 0, false
	}
	e := heap.Pop(&q.entries).(*dueEntry)
	delete(q.byCard, e.card)
	return e.card, true
}
