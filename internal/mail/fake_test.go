package mail

import (
	"context"
	"errors"
)

// fakeStore is an in-memory Store
type fakeStore struct {
	threads  map[string]*Thread
	order    []string
	marked   []string
	sent     [][]byte
	maxSeen  int
	labelErr error
}

func newFakeStore(threads ...*Thread) *fakeStore {
	s := &fakeStore{threads: make(map[string]*Thread)}
	for _, t := range threads {
		s.threads[t.ID] = t
		s.order = append(s.order, t.ID)
	}
	return s
}

func (s *fakeStore) SearchThreads(ctx context.Context, label string, max int) ([]string, error) {
	s.maxSeen = max
	if s.labelErr != nil {
		return nil, s.labelErr
	}
	ids := s.order
	if len(ids) > max {
		ids = ids[:max]
	}
	return ids, nil
}

func (s *fakeStore) Thread(ctx context.Context, id string) (*Thread, error) {
	t, ok := s.threads[id]
	if !ok {
		return nil, errors.New("no such thread")
	}
	return t, nil
}

func (s *fakeStore) MarkThreadRead(ctx context.Context, id string) error {
	s.marked = append(s.marked, id)
	return nil
}

func (s *fakeStore) Send(ctx context.Context, raw []byte) error {
	s.sent = append(s.sent, raw)
	return nil
}
