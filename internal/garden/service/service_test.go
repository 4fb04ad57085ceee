package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"garden-board/internal/garden/models"
	"garden-board/internal/testutil/testlog"
)

type fakeRepo struct {
	items   []models.Item
	seq     int
	failAll bool
}

func (f *fakeRepo) ListItems(ctx context.Context) ([]models.Item, error) {
	return append([]models.Item(nil), f.items...), nil
}

func (f *fakeRepo) InsertItem(ctx context.Context, n models.NewItem) (models.Item, error) {
	if f.failAll {
		return models.Item{}, errors.New("boom")
	}
	f.seq++
	it := models.Item{ID: string(rune('a' + f.seq - 1)), Label: n.Label, URL: n.URL, X: n.X, Y: n.Y, Scale: n.Scale}
	f.items = append(f.items, it)
	return it, nil
}

func (f *fakeRepo) UpdateItem(ctx context.Context, id string, p models.ItemPatch) (models.Item, error) {
	for i, it := range f.items {
		if it.ID == id {
			f.items[i] = p.Apply(it)
			return f.items[i], nil
		}
	}
	return models.Item{}, errors.New("not found")
}

func (f *fakeRepo) DeleteItem(ctx context.Context, id string) (models.Item, error) {
	for i, it := range f.items {
		if it.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return it, nil
		}
	}
	return models.Item{}, errors.New("not found")
}

func (f *fakeRepo) DeleteAllItems(ctx context.Context) ([]models.Item, error) {
	out := f.items
	f.items = nil
	return out, nil
}

type recordingPub struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingPub) Publish(ev models.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// stallingRepo коммитит по одному, но первый вызов UpdateItem задерживается
// уже после коммита.
type stallingRepo struct {
	fakeRepo
	mu    sync.Mutex
	calls int
}

func (r *stallingRepo) UpdateItem(ctx context.Context, id string, p models.ItemPatch) (models.Item, error) {
	r.mu.Lock()
	r.calls++
	first := r.calls == 1
	it, err := r.fakeRepo.UpdateItem(ctx, id, p)
	r.mu.Unlock()
	if first {
		time.Sleep(50 * time.Millisecond)
	}
	return it, err
}

func TestCreateAppliesDefaultsAndPublishes(t *testing.T) {
	repo := &fakeRepo{}
	pub := &recordingPub{}
	svc := NewItemService(repo, pub, testlog.Start(t))

	it, err := svc.Create(context.Background(), models.NewItem{URL: "/rose.png", X: 5, Y: 6})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if it.Label != models.DefaultLabel || it.Scale != 1 {
		t.Fatalf("defaults not applied: %+v", it)
	}
	if len(pub.events) != 1 || pub.events[0].Type != models.EventInsert || pub.events[0].Row.ID != it.ID {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
}

func TestCreateFailureDoesNotPublish(t *testing.T) {
	pub := &recordingPub{}
	svc := NewItemService(&fakeRepo{failAll: true}, pub, testlog.Start(t))

	if _, err := svc.Create(context.Background(), models.NewItem{URL: "/x.png"}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := svc.Create(context.Background(), models.NewItem{}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("no events expected, got %+v", pub.events)
	}
}

func TestUpdateRejectsEmptyPatch(t *testing.T) {
	svc := NewItemService(&fakeRepo{}, &recordingPub{}, testlog.Start(t))
	if _, err := svc.Update(context.Background(), "a", models.ItemPatch{}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestClearPublishesDeletePerRow(t *testing.T) {
	repo := &fakeRepo{}
	pub := &recordingPub{}
	svc := NewItemService(repo, pub, testlog.Start(t))
	ctx := context.Background()

	_, _ = svc.Create(ctx, models.NewItem{URL: "/a.png", Label: "Rose"})
	_, _ = svc.Create(ctx, models.NewItem{URL: "/b.png", Label: "Tulip"})
	pub.events = nil

	n, err := svc.Clear(ctx)
	if err != nil || n != 2 {
		t.Fatalf("clear: n=%d err=%v", n, err)
	}
	if len(pub.events) != 2 {
		t.Fatalf("expected 2 delete events, got %d", len(pub.events))
	}
	for _, ev := range pub.events {
		if ev.Type != models.EventDelete {
			t.Fatalf("expected delete event, got %s", ev.Type)
		}
	}
}

func TestSessionManagerIssueResolveRevoke(t *testing.T) {
	m := NewSessionManager()
	token := m.Issue("u1", models.RoleAdmin)

	s, ok := m.Resolve(token)
	if !ok || s.UserID != "u1" || s.Role != models.RoleAdmin {
		t.Fatalf("resolve: %+v ok=%v", s, ok)
	}
	m.Revoke(token)
	if _, ok := m.Resolve(token); ok {
		t.Fatalf("revoked token must not resolve")
	}
}

func TestConcurrentUpdatesPublishInCommitOrder(t *testing.T) {
	repo := &stallingRepo{fakeRepo: fakeRepo{items: []models.Item{{ID: "a", Label: "Ana", URL: "/rose.png"}}}}
	pub := &recordingPub{}
	svc := NewItemService(repo, pub, testlog.Start(t))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := svc.Update(context.Background(), "a", models.PosePatch(1, 0, 0)); err != nil {
			t.Errorf("update 1: %v", err)
		}
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		defer wg.Done()
		if _, err := svc.Update(context.Background(), "a", models.PosePatch(2, 0, 0)); err != nil {
			t.Errorf("update 2: %v", err)
		}
	}()
	wg.Wait()

	stored, _ := repo.ListItems(context.Background())
	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}
	last := pub.events[len(pub.events)-1].Row
	if last.X != stored[0].X {
		t.Fatalf("events out of commit order: db X=%v, last event X=%v", stored[0].X, last.X)
	}
}
