package services

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"cloutQuestAPI/internal/types/endeavor"
	"cloutQuestAPI/internal/types/entry"
	"cloutQuestAPI/middleware"
)

// SyncStatus is the coarse indicator pushed to UI clients around mutations
// and subscription (re)connects. It carries no consistency guarantee and
// never gates correctness.
type SyncStatus string

const (
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// EntryStore is the document-store boundary: live month subscriptions,
// entry mutations, and the single settings document. Mutations propagate
// failures to the caller and are never retried here; subscription snapshots
// always deliver a complete MonthView, not a diff.
type EntryStore interface {
	SubscribeMonth(ctx context.Context, year, month int, fn func(entry.MonthView, error)) (stop func())
	GetMonth(ctx context.Context, year, month int) (entry.MonthView, error)
	CreateEntry(ctx context.Context, f entry.Fields) (string, error)
	UpdateEntry(ctx context.Context, id string, f entry.Fields) error
	SetDone(ctx context.Context, id string, done bool) error
	MoveEntry(ctx context.Context, id, newDate string) error
	DeleteEntry(ctx context.Context, id string) error
	GetSettings(ctx context.Context) ([]endeavor.Endeavor, error)
	SubscribeSettings(ctx context.Context, fn func([]endeavor.Endeavor, error)) (stop func())
	SaveSettings(ctx context.Context, list []endeavor.Endeavor) error
}

const (
	daysCollection     = "days"
	settingsCollection = "settings"
	settingsDocID      = "planner"
)

// FirestoreStore backs EntryStore with a Firestore project: a "days"
// collection of day entries and a single settings document holding the
// endeavor triple.
type FirestoreStore struct {
	client   *firestore.Client
	days     *firestore.CollectionRef
	settings *firestore.DocumentRef
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client:   client,
		days:     client.Collection(daysCollection),
		settings: client.Collection(settingsCollection).Doc(settingsDocID),
	}
}

// SubscribeMonth registers a live range query over the month's date keys
// and invokes fn with a fresh complete MonthView on the initial load and on
// every subsequent remote change. A listener error is delivered once as
// fn(nil, err); the underlying watch reconnects on its own, so no backoff
// is layered here. The returned stop func releases the listener; callers
// must stop the previous month before subscribing to the next one.
func (s *FirestoreStore) SubscribeMonth(ctx context.Context, year, month int, fn func(entry.MonthView, error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	start, end := entry.MonthRange(year, month)

	q := s.days.
		Where("date", ">=", start).
		Where("date", "<=", end).
		OrderBy("date", firestore.Asc)

	go func() {
		it := q.Snapshots(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				log.Printf("EntryStore: month %04d-%02d listener error: %v", year, month, err)
				fn(nil, err)
				return
			}
			view, err := collectView(snap.Documents)
			if err != nil {
				fn(nil, err)
				continue
			}
			middleware.RecordSnapshot()
			fn(view, nil)
		}
	}()

	return cancel
}

// GetMonth is the one-shot form of SubscribeMonth, used by the REST surface.
func (s *FirestoreStore) GetMonth(ctx context.Context, year, month int) (entry.MonthView, error) {
	start, end := entry.MonthRange(year, month)
	docs := s.days.
		Where("date", ">=", start).
		Where("date", "<=", end).
		OrderBy("date", firestore.Asc).
		Documents(ctx)
	return collectView(docs)
}

func collectView(docs *firestore.DocumentIterator) (entry.MonthView, error) {
	view := entry.MonthView{}
	for {
		doc, err := docs.Next()
		if err == iterator.Done {
			return view, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading day documents: %w", err)
		}
		var e entry.DayEntry
		if err := doc.DataTo(&e); err != nil {
			log.Printf("EntryStore: skipping malformed day document %s: %v", doc.Ref.ID, err)
			continue
		}
		e.ID = doc.Ref.ID
		view[e.Date] = &e
	}
}

func (s *FirestoreStore) CreateEntry(ctx context.Context, f entry.Fields) (string, error) {
	f = f.Trimmed()
	doc, _, err := s.days.Add(ctx, map[string]interface{}{
		"date":        f.Date,
		"contentType": f.CategoryKey,
		"title":       f.Title,
		"notes":       f.Notes,
		"platforms":   f.Platforms,
		"done":        f.Done,
		"createdAt":   firestore.ServerTimestamp,
		"updatedAt":   firestore.ServerTimestamp,
	})
	middleware.RecordMutation("create", err)
	if err != nil {
		return "", fmt.Errorf("creating day entry: %w", err)
	}
	return doc.ID, nil
}

// UpdateEntry replaces the editable fields of an existing entry and
// refreshes updatedAt. The id is not checked for existence client-side; a
// reference to a deleted document fails at the store.
func (s *FirestoreStore) UpdateEntry(ctx context.Context, id string, f entry.Fields) error {
	f = f.Trimmed()
	err := s.update(ctx, id,
		firestore.Update{Path: "date", Value: f.Date},
		firestore.Update{Path: "contentType", Value: f.CategoryKey},
		firestore.Update{Path: "title", Value: f.Title},
		firestore.Update{Path: "notes", Value: f.Notes},
		firestore.Update{Path: "platforms", Value: f.Platforms},
		firestore.Update{Path: "done", Value: f.Done},
	)
	middleware.RecordMutation("update", err)
	return err
}

// SetDone flips the completion flag without touching the rest of the entry.
func (s *FirestoreStore) SetDone(ctx context.Context, id string, done bool) error {
	err := s.update(ctx, id, firestore.Update{Path: "done", Value: done})
	middleware.RecordMutation("toggle_done", err)
	return err
}

// MoveEntry reschedules an entry by rewriting only its date. A collision on
// newDate is not checked: both entries persist and the MonthView keeps the
// last-applied one (accepted last-write-wins race).
func (s *FirestoreStore) MoveEntry(ctx context.Context, id, newDate string) error {
	err := s.update(ctx, id, firestore.Update{Path: "date", Value: newDate})
	middleware.RecordMutation("move", err)
	return err
}

func (s *FirestoreStore) update(ctx context.Context, id string, updates ...firestore.Update) error {
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})
	if _, err := s.days.Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("updating day entry %s: %w", id, err)
	}
	return nil
}

func (s *FirestoreStore) DeleteEntry(ctx context.Context, id string) error {
	_, err := s.days.Doc(id).Delete(ctx)
	middleware.RecordMutation("delete", err)
	if err != nil {
		return fmt.Errorf("deleting day entry %s: %w", id, err)
	}
	return nil
}

type settingsDoc struct {
	Endeavors []endeavor.Endeavor `firestore:"endeavors"`
}

// GetSettings returns the persisted endeavor list as-is. Normalizing to the
// exactly-three invariant is the caller's job, so a short or missing list
// comes back unchanged (nil for a missing document).
func (s *FirestoreStore) GetSettings(ctx context.Context) ([]endeavor.Endeavor, error) {
	snap, err := s.settings.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return decodeSettings(snap), nil
}

// SubscribeSettings watches the settings document; a missing document is
// delivered as a nil list, not an error.
func (s *FirestoreStore) SubscribeSettings(ctx context.Context, fn func([]endeavor.Endeavor, error)) func() {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		it := s.settings.Snapshots(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				log.Printf("EntryStore: settings listener error: %v", err)
				fn(nil, err)
				return
			}
			fn(decodeSettings(snap), nil)
		}
	}()

	return cancel
}

func decodeSettings(snap *firestore.DocumentSnapshot) []endeavor.Endeavor {
	if snap == nil || !snap.Exists() {
		return nil
	}
	var doc settingsDoc
	if err := snap.DataTo(&doc); err != nil {
		log.Printf("EntryStore: malformed settings document: %v", err)
		return nil
	}
	return doc.Endeavors
}

// SaveSettings writes the endeavor list with a merge so unrelated settings
// fields survive.
func (s *FirestoreStore) SaveSettings(ctx context.Context, list []endeavor.Endeavor) error {
	_, err := s.settings.Set(ctx, map[string]interface{}{
		"endeavors": list,
	}, firestore.MergeAll)
	middleware.RecordMutation("save_settings", err)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// Healthy is a cheap readiness probe: one settings read with the caller's
// deadline. A missing settings document still counts as healthy.
func (s *FirestoreStore) Healthy(ctx context.Context) error {
	_, err := s.GetSettings(ctx)
	return err
}
