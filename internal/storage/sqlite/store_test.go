package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcoot/eventpulse/internal/model"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "eventpulse.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func seedEvent(t *testing.T, store *Store, id, slug string) *model.Event {
	t.Helper()
	event := &model.Event{
		ID:        model.EventID(id),
		Slug:      slug,
		Name:      slug,
		Status:    model.EventStatusActive,
		CreatedAt: time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func seedParticipant(t *testing.T, store *Store, id, telegramID, publicID string) *model.Participant {
	t.Helper()
	p := &model.Participant{
		ID:         model.ParticipantID(id),
		TelegramID: telegramID,
		PublicID:   publicID,
		CreatedAt:  time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.CreateParticipant(context.Background(), p); err != nil {
		t.Fatalf("create participant: %v", err)
	}
	return p
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "eventpulse.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening applies migrations again without error
	store, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestParticipantRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	created := seedParticipant(t, store, "p1", "tg1", "pub-1")

	got, err := store.GetParticipant(ctx, "p1")
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if got.TelegramID != "tg1" {
		t.Fatalf("telegram_id = %q, want %q", got.TelegramID, "tg1")
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, created.CreatedAt)
	}

	byTelegram, err := store.GetParticipantByTelegramID(ctx, "tg1")
	if err != nil {
		t.Fatalf("get by telegram id: %v", err)
	}
	if byTelegram.ID != created.ID {
		t.Fatalf("id = %q, want %q", byTelegram.ID, created.ID)
	}

	byPublic, err := store.GetParticipantByPublicID(ctx, "pub-1")
	if err != nil {
		t.Fatalf("get by public id: %v", err)
	}
	if byPublic.ID != created.ID {
		t.Fatalf("id = %q, want %q", byPublic.ID, created.ID)
	}
}

func TestParticipantNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)

	if _, err := store.GetParticipant(context.Background(), "missing"); !errors.Is(err, model.ErrParticipantNotFound) {
		t.Fatalf("err = %v, want ErrParticipantNotFound", err)
	}
}

func TestParticipantUniqueConstraints(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	seedParticipant(t, store, "p1", "tg1", "pub-1")

	dupTelegram := &model.Participant{ID: "p2", TelegramID: "tg1", PublicID: "pub-2", CreatedAt: time.Now()}
	if err := store.CreateParticipant(ctx, dupTelegram); !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("duplicate telegram id err = %v, want ErrAlreadyExists", err)
	}

	dupPublic := &model.Participant{ID: "p3", TelegramID: "tg3", PublicID: "pub-1", CreatedAt: time.Now()}
	if err := store.CreateParticipant(ctx, dupPublic); !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("duplicate public id err = %v, want ErrAlreadyExists", err)
	}
}

func TestEventUniqueSlug(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedEvent(t, store, "e1", "demo")

	dup := &model.Event{ID: "e2", Slug: "demo", Name: "demo", Status: model.EventStatusActive, CreatedAt: time.Now()}
	if err := store.CreateEvent(context.Background(), dup); !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("duplicate slug err = %v, want ErrAlreadyExists", err)
	}

	if _, err := store.GetEventBySlug(context.Background(), "missing"); !errors.Is(err, model.ErrEventNotFound) {
		t.Fatalf("err = %v, want ErrEventNotFound", err)
	}
}

func TestMembershipAndProfileListing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	event := seedEvent(t, store, "e1", "demo")
	p := seedParticipant(t, store, "p1", "tg1", "pub-1")
	bare := seedParticipant(t, store, "p2", "tg2", "pub-2")

	niche := "fintech"
	profile := &model.Profile{
		ParticipantID: p.ID,
		FirstName:     "Alice",
		Niche:         &niche,
		UpdatedAt:     time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}

	for i, participantID := range []model.ParticipantID{p.ID, bare.ID} {
		membership := &model.Membership{
			ID:            string(rune('a' + i)),
			EventID:       event.ID,
			ParticipantID: participantID,
			JoinedAt:      time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC),
		}
		if err := store.EnsureMembership(ctx, membership); err != nil {
			t.Fatalf("ensure membership: %v", err)
		}
		// Repeat insert is a no-op
		if err := store.EnsureMembership(ctx, membership); err != nil {
			t.Fatalf("repeat membership: %v", err)
		}
	}

	members, err := store.ListMembers(ctx, event.ID, 10)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	// Members without a profile are not listed
	if len(members) != 1 {
		t.Fatalf("members = %d, want 1", len(members))
	}
	if members[0].Profile.FirstName != "Alice" {
		t.Fatalf("first_name = %q, want Alice", members[0].Profile.FirstName)
	}
	if members[0].Profile.Niche == nil || *members[0].Profile.Niche != "fintech" {
		t.Fatalf("niche = %v, want fintech", members[0].Profile.Niche)
	}
}

func TestProfileUpsertReplaces(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	p := seedParticipant(t, store, "p1", "tg1", "pub-1")

	about := "first version"
	if err := store.UpsertProfile(ctx, &model.Profile{
		ParticipantID: p.ID, FirstName: "Alice", About: &about, UpdatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := store.UpsertProfile(ctx, &model.Profile{
		ParticipantID: p.ID, FirstName: "Alicia", UpdatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := store.GetProfile(ctx, p.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.FirstName != "Alicia" {
		t.Fatalf("first_name = %q, want Alicia", got.FirstName)
	}
	if got.About != nil {
		t.Fatalf("about = %v, want nil", *got.About)
	}
}

func TestEncounterPairUniqueness(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	event := seedEvent(t, store, "e1", "demo")
	seedParticipant(t, store, "pa", "tg1", "pub-aaaa")
	seedParticipant(t, store, "pb", "tg2", "pub-bbbb")

	first := &model.Encounter{
		ID: "enc1", EventID: event.ID,
		ParticipantLowID: "pa", ParticipantHighID: "pb",
		InitiatorID: "pa", CreatedAt: time.Now().UTC(),
	}
	if err := store.InsertEncounter(ctx, first); err != nil {
		t.Fatalf("insert encounter: %v", err)
	}

	dup := &model.Encounter{
		ID: "enc2", EventID: event.ID,
		ParticipantLowID: "pa", ParticipantHighID: "pb",
		InitiatorID: "pb", CreatedAt: time.Now().UTC(),
	}
	if err := store.InsertEncounter(ctx, dup); !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("duplicate pair err = %v, want ErrAlreadyExists", err)
	}

	got, err := store.GetEncounterByPair(ctx, event.ID, "pa", "pb")
	if err != nil {
		t.Fatalf("get by pair: %v", err)
	}
	if got.ID != "enc1" {
		t.Fatalf("id = %q, want enc1", got.ID)
	}
}

func TestEncounterListDetailAndStats(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	event := seedEvent(t, store, "e1", "demo")
	other := seedEvent(t, store, "e2", "other")
	base := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

	for _, spec := range []struct{ id, tg, pub, name string }{
		{"pa", "tg1", "pub-aaaa", "Alice"},
		{"pb", "tg2", "pub-bbbb", "Bob"},
		{"pc", "tg3", "pub-cccc", "Carol"},
	} {
		p := seedParticipant(t, store, spec.id, spec.tg, spec.pub)
		if err := store.UpsertProfile(ctx, &model.Profile{
			ParticipantID: p.ID, FirstName: spec.name, UpdatedAt: base,
		}); err != nil {
			t.Fatalf("upsert profile: %v", err)
		}
	}

	encounters := []*model.Encounter{
		{ID: "enc1", EventID: event.ID, ParticipantLowID: "pa", ParticipantHighID: "pb", InitiatorID: "pa", CreatedAt: base},
		{ID: "enc2", EventID: event.ID, ParticipantLowID: "pa", ParticipantHighID: "pc", InitiatorID: "pc", CreatedAt: base.Add(time.Minute)},
		{ID: "enc3", EventID: other.ID, ParticipantLowID: "pa", ParticipantHighID: "pb", InitiatorID: "pa", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range encounters {
		if err := store.InsertEncounter(ctx, e); err != nil {
			t.Fatalf("insert %s: %v", e.ID, err)
		}
		for _, side := range []model.ParticipantID{e.ParticipantLowID, e.ParticipantHighID} {
			if err := store.EnsureAnnotation(ctx, &model.Annotation{
				EncounterID: e.ID, ParticipantID: side, UpdatedAt: e.CreatedAt,
			}); err != nil {
				t.Fatalf("ensure annotation: %v", err)
			}
		}
	}

	note := "great conversation"
	rating := 5
	if err := store.UpdateAnnotation(ctx, "enc1", "pa", &note, &rating, base.Add(time.Hour)); err != nil {
		t.Fatalf("update annotation: %v", err)
	}

	summaries, err := store.ListEncounters(ctx, event.ID, "pa")
	if err != nil {
		t.Fatalf("list encounters: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("encounters = %d, want 2", len(summaries))
	}
	// Newest first; the other event's encounter is excluded
	if summaries[0].ID != "enc2" || summaries[1].ID != "enc1" {
		t.Fatalf("order = %s, %s, want enc2, enc1", summaries[0].ID, summaries[1].ID)
	}
	if summaries[1].Note == nil || *summaries[1].Note != note {
		t.Fatalf("note = %v, want %q", summaries[1].Note, note)
	}
	if summaries[0].Other.DisplayName == nil || *summaries[0].Other.DisplayName != "Carol" {
		t.Fatalf("display name = %v, want Carol", summaries[0].Other.DisplayName)
	}

	// The counterpart never sees pa's annotation
	bobView, err := store.ListEncounters(ctx, event.ID, "pb")
	if err != nil {
		t.Fatalf("list encounters for pb: %v", err)
	}
	if len(bobView) != 1 {
		t.Fatalf("encounters = %d, want 1", len(bobView))
	}
	if bobView[0].Note != nil || bobView[0].Rating != nil {
		t.Fatal("pb must not see pa's annotation")
	}

	detail, err := store.GetEncounterDetail(ctx, event.ID, "pa", "enc1")
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}
	if detail.OtherProfile == nil || detail.OtherProfile.FirstName != "Bob" {
		t.Fatalf("other profile = %+v, want Bob", detail.OtherProfile)
	}
	if detail.Rating == nil || *detail.Rating != 5 {
		t.Fatalf("rating = %v, want 5", detail.Rating)
	}

	// Structural scoping: a third party gets not found
	if _, err := store.GetEncounterDetail(ctx, event.ID, "pc", "enc1"); !errors.Is(err, model.ErrEncounterNotFound) {
		t.Fatalf("err = %v, want ErrEncounterNotFound", err)
	}

	stats, err := store.GetEncounterStats(ctx, event.ID, "pa")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.Encounters != 2 || stats.Rated != 1 || stats.Notes != 1 {
		t.Fatalf("stats = %+v, want 2 encounters, 1 rated, 1 note", stats)
	}
	if stats.AvgRating == nil || *stats.AvgRating != 5.0 {
		t.Fatalf("avg = %v, want 5.0", stats.AvgRating)
	}
}

func TestUpdateAnnotationWithoutRowIsNoop(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	event := seedEvent(t, store, "e1", "demo")
	seedParticipant(t, store, "pa", "tg1", "pub-aaaa")
	seedParticipant(t, store, "pb", "tg2", "pub-bbbb")
	e := &model.Encounter{
		ID: "enc1", EventID: event.ID,
		ParticipantLowID: "pa", ParticipantHighID: "pb",
		InitiatorID: "pa", CreatedAt: time.Now().UTC(),
	}
	if err := store.InsertEncounter(ctx, e); err != nil {
		t.Fatalf("insert encounter: %v", err)
	}

	note := "dropped on the floor"
	if err := store.UpdateAnnotation(ctx, "enc1", "pa", &note, nil, time.Now().UTC()); err != nil {
		t.Fatalf("update annotation: %v", err)
	}

	detail, err := store.GetEncounterDetail(ctx, event.ID, "pa", "enc1")
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}
	if detail.Note != nil {
		t.Fatalf("note = %v, want nil", *detail.Note)
	}
}
