// Package sqlite provides the SQLite-backed storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcoot/eventpulse/internal/model"
	"github.com/mcoot/eventpulse/internal/storage"
	"github.com/mcoot/eventpulse/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store persists application state in SQLite
type Store struct {
	sqlDB *sql.DB
}

// Ensure Store implements the interface
var _ storage.Storage = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at the given path and applies embedded
// migrations. The parent directory is created if missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// Participant operations

func (s *Store) CreateParticipant(ctx context.Context, p *model.Participant) error {
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO participants (id, telegram_id, public_id, created_at) VALUES (?, ?, ?, ?)`,
		string(p.ID), p.TelegramID, p.PublicID, toMillis(p.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyExists
		}
		return fmt.Errorf("create participant: %w", err)
	}
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, id model.ParticipantID) (*model.Participant, error) {
	return s.getParticipantBy(ctx, "id", string(id))
}

func (s *Store) GetParticipantByTelegramID(ctx context.Context, telegramID string) (*model.Participant, error) {
	return s.getParticipantBy(ctx, "telegram_id", telegramID)
}

func (s *Store) GetParticipantByPublicID(ctx context.Context, publicID string) (*model.Participant, error) {
	return s.getParticipantBy(ctx, "public_id", publicID)
}

func (s *Store) getParticipantBy(ctx context.Context, column, value string) (*model.Participant, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, telegram_id, public_id, created_at FROM participants WHERE `+column+` = ?`,
		value,
	)
	var p model.Participant
	var id string
	var createdAt int64
	if err := row.Scan(&id, &p.TelegramID, &p.PublicID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("get participant by %s: %w", column, err)
	}
	p.ID = model.ParticipantID(id)
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

// Event operations

func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO events (id, slug, name, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(e.ID), e.Slug, e.Name, e.Status, toMillis(e.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyExists
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *Store) GetEventBySlug(ctx context.Context, slug string) (*model.Event, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, slug, name, status, created_at FROM events WHERE slug = ?`,
		slug,
	)
	var e model.Event
	var id string
	var createdAt int64
	if err := row.Scan(&id, &e.Slug, &e.Name, &e.Status, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event by slug: %w", err)
	}
	e.ID = model.EventID(id)
	e.CreatedAt = fromMillis(createdAt)
	return &e, nil
}

// Membership operations

func (s *Store) EnsureMembership(ctx context.Context, m *model.Membership) error {
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO event_participants (id, event_id, participant_id, joined_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(event_id, participant_id) DO NOTHING`,
		m.ID, string(m.EventID), string(m.ParticipantID), toMillis(m.JoinedAt),
	)
	if err != nil {
		return fmt.Errorf("ensure membership: %w", err)
	}
	return nil
}

func (s *Store) ListMembers(ctx context.Context, eventID model.EventID, limit int) ([]model.ParticipantSummary, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT
			ep.joined_at,
			pa.id, pa.public_id,
			pr.photo_url, pr.first_name, pr.last_name, pr.instagram, pr.niche, pr.about, pr.helpful, pr.updated_at
		 FROM event_participants ep
		 JOIN participants pa ON pa.id = ep.participant_id
		 JOIN profiles pr ON pr.participant_id = pa.id
		 WHERE ep.event_id = ?
		 ORDER BY ep.joined_at DESC, pa.id ASC
		 LIMIT ?`,
		string(eventID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.ParticipantSummary
	for rows.Next() {
		var m model.ParticipantSummary
		var id string
		var joinedAt, updatedAt int64
		var photoURL, lastName, instagram, niche, about, helpful sql.NullString
		if err := rows.Scan(
			&joinedAt,
			&id, &m.PublicID,
			&photoURL, &m.Profile.FirstName, &lastName, &instagram, &niche, &about, &helpful, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.ParticipantID = model.ParticipantID(id)
		m.JoinedAt = fromMillis(joinedAt)
		m.Profile.ParticipantID = m.ParticipantID
		m.Profile.PhotoURL = nullableString(photoURL)
		m.Profile.LastName = nullableString(lastName)
		m.Profile.Instagram = nullableString(instagram)
		m.Profile.Niche = nullableString(niche)
		m.Profile.About = nullableString(about)
		m.Profile.Helpful = nullableString(helpful)
		m.Profile.UpdatedAt = fromMillis(updatedAt)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// Profile operations

func (s *Store) GetProfile(ctx context.Context, id model.ParticipantID) (*model.Profile, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT participant_id, photo_url, first_name, last_name, instagram, niche, about, helpful, updated_at
		 FROM profiles
		 WHERE participant_id = ?`,
		string(id),
	)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p *model.Profile) error {
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO profiles (participant_id, photo_url, first_name, last_name, instagram, niche, about, helpful, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(participant_id) DO UPDATE SET
		   photo_url = excluded.photo_url,
		   first_name = excluded.first_name,
		   last_name = excluded.last_name,
		   instagram = excluded.instagram,
		   niche = excluded.niche,
		   about = excluded.about,
		   helpful = excluded.helpful,
		   updated_at = excluded.updated_at`,
		string(p.ParticipantID), p.PhotoURL, p.FirstName, p.LastName,
		p.Instagram, p.Niche, p.About, p.Helpful, toMillis(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Encounter operations

func (s *Store) InsertEncounter(ctx context.Context, e *model.Encounter) error {
	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO encounters (id, event_id, participant_low_id, participant_high_id, initiator_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(event_id, participant_low_id, participant_high_id) DO NOTHING`,
		string(e.ID), string(e.EventID), string(e.ParticipantLowID), string(e.ParticipantHighID),
		string(e.InitiatorID), toMillis(e.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyExists
		}
		return fmt.Errorf("insert encounter: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert encounter: %w", err)
	}
	if affected == 0 {
		return model.ErrAlreadyExists
	}
	return nil
}

func (s *Store) GetEncounterByPair(ctx context.Context, eventID model.EventID, low, high model.ParticipantID) (*model.Encounter, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, event_id, participant_low_id, participant_high_id, initiator_id, created_at
		 FROM encounters
		 WHERE event_id = ? AND participant_low_id = ? AND participant_high_id = ?`,
		string(eventID), string(low), string(high),
	)
	return scanEncounter(row)
}

func (s *Store) ListEncounters(ctx context.Context, eventID model.EventID, participantID model.ParticipantID) ([]model.EncounterSummary, error) {
	me := string(participantID)
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT
			e.id, e.created_at,
			po.id, po.public_id,
			pr.first_name, pr.last_name, pr.photo_url, pr.niche,
			a.note, a.rating
		 FROM encounters e
		 JOIN participants po
		   ON po.id = CASE WHEN e.participant_low_id = ? THEN e.participant_high_id ELSE e.participant_low_id END
		 LEFT JOIN profiles pr ON pr.participant_id = po.id
		 LEFT JOIN encounter_annotations a ON a.encounter_id = e.id AND a.participant_id = ?
		 WHERE e.event_id = ? AND (e.participant_low_id = ? OR e.participant_high_id = ?)
		 ORDER BY e.created_at DESC, e.id ASC`,
		me, me, string(eventID), me, me,
	)
	if err != nil {
		return nil, fmt.Errorf("list encounters: %w", err)
	}
	defer rows.Close()

	var summaries []model.EncounterSummary
	for rows.Next() {
		var summary model.EncounterSummary
		var id, otherID string
		var createdAt int64
		var firstName, lastName, photoURL, niche, note sql.NullString
		var rating sql.NullInt64
		if err := rows.Scan(
			&id, &createdAt,
			&otherID, &summary.Other.PublicID,
			&firstName, &lastName, &photoURL, &niche,
			&note, &rating,
		); err != nil {
			return nil, fmt.Errorf("scan encounter: %w", err)
		}
		summary.ID = model.EncounterID(id)
		summary.CreatedAt = fromMillis(createdAt)
		summary.Other.ParticipantID = model.ParticipantID(otherID)
		if firstName.Valid {
			name := model.Profile{FirstName: firstName.String, LastName: nullableString(lastName)}.DisplayName()
			summary.Other.DisplayName = &name
		}
		summary.Other.PhotoURL = nullableString(photoURL)
		summary.Other.Niche = nullableString(niche)
		summary.Note = nullableString(note)
		summary.Rating = nullableInt(rating)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list encounters: %w", err)
	}
	return summaries, nil
}

func (s *Store) GetEncounterDetail(ctx context.Context, eventID model.EventID, participantID model.ParticipantID, encounterID model.EncounterID) (*model.EncounterDetail, error) {
	me := string(participantID)
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT
			e.id, e.created_at,
			po.id, po.public_id,
			pr.participant_id, pr.photo_url, pr.first_name, pr.last_name, pr.instagram, pr.niche, pr.about, pr.helpful, pr.updated_at,
			a.note, a.rating
		 FROM encounters e
		 JOIN participants po
		   ON po.id = CASE WHEN e.participant_low_id = ? THEN e.participant_high_id ELSE e.participant_low_id END
		 LEFT JOIN profiles pr ON pr.participant_id = po.id
		 LEFT JOIN encounter_annotations a ON a.encounter_id = e.id AND a.participant_id = ?
		 WHERE e.id = ? AND e.event_id = ? AND (e.participant_low_id = ? OR e.participant_high_id = ?)
		 LIMIT 1`,
		me, me, string(encounterID), string(eventID), me, me,
	)

	var detail model.EncounterDetail
	var id, otherID string
	var createdAt int64
	var profileID, photoURL, firstName, lastName, instagram, niche, about, helpful, note sql.NullString
	var updatedAt, rating sql.NullInt64
	if err := row.Scan(
		&id, &createdAt,
		&otherID, &detail.Other.PublicID,
		&profileID, &photoURL, &firstName, &lastName, &instagram, &niche, &about, &helpful, &updatedAt,
		&note, &rating,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrEncounterNotFound
		}
		return nil, fmt.Errorf("get encounter detail: %w", err)
	}
	detail.ID = model.EncounterID(id)
	detail.CreatedAt = fromMillis(createdAt)
	detail.Other.ParticipantID = model.ParticipantID(otherID)
	detail.Note = nullableString(note)
	detail.Rating = nullableInt(rating)
	if profileID.Valid {
		profile := &model.Profile{
			ParticipantID: model.ParticipantID(profileID.String),
			PhotoURL:      nullableString(photoURL),
			FirstName:     firstName.String,
			LastName:      nullableString(lastName),
			Instagram:     nullableString(instagram),
			Niche:         nullableString(niche),
			About:         nullableString(about),
			Helpful:       nullableString(helpful),
		}
		if updatedAt.Valid {
			profile.UpdatedAt = fromMillis(updatedAt.Int64)
		}
		detail.OtherProfile = profile
		name := profile.DisplayName()
		detail.Other.DisplayName = &name
		detail.Other.PhotoURL = profile.PhotoURL
		detail.Other.Niche = profile.Niche
	}
	return &detail, nil
}

func (s *Store) GetEncounterStats(ctx context.Context, eventID model.EventID, participantID model.ParticipantID) (*model.EncounterStats, error) {
	me := string(participantID)
	stats := &model.EncounterStats{}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM encounters
		 WHERE event_id = ? AND (participant_low_id = ? OR participant_high_id = ?)`,
		string(eventID), me, me,
	)
	if err := row.Scan(&stats.Encounters); err != nil {
		return nil, fmt.Errorf("count encounters: %w", err)
	}

	row = s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*), AVG(rating) FROM encounter_annotations
		 WHERE participant_id = ? AND rating IS NOT NULL AND encounter_id IN (
		   SELECT id FROM encounters WHERE event_id = ? AND (participant_low_id = ? OR participant_high_id = ?)
		 )`,
		me, string(eventID), me, me,
	)
	var avg sql.NullFloat64
	if err := row.Scan(&stats.Rated, &avg); err != nil {
		return nil, fmt.Errorf("count ratings: %w", err)
	}
	if avg.Valid {
		value := avg.Float64
		stats.AvgRating = &value
	}

	row = s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM encounter_annotations
		 WHERE participant_id = ? AND note IS NOT NULL AND TRIM(note) <> '' AND encounter_id IN (
		   SELECT id FROM encounters WHERE event_id = ? AND (participant_low_id = ? OR participant_high_id = ?)
		 )`,
		me, string(eventID), me, me,
	)
	if err := row.Scan(&stats.Notes); err != nil {
		return nil, fmt.Errorf("count notes: %w", err)
	}

	return stats, nil
}

// Annotation operations

func (s *Store) EnsureAnnotation(ctx context.Context, a *model.Annotation) error {
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO encounter_annotations (encounter_id, participant_id, note, rating, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(encounter_id, participant_id) DO NOTHING`,
		string(a.EncounterID), string(a.ParticipantID), a.Note, a.Rating, toMillis(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("ensure annotation: %w", err)
	}
	return nil
}

func (s *Store) UpdateAnnotation(ctx context.Context, encounterID model.EncounterID, participantID model.ParticipantID, note *string, rating *int, updatedAt time.Time) error {
	_, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE encounter_annotations
		 SET note = ?, rating = ?, updated_at = ?
		 WHERE encounter_id = ? AND participant_id = ?`,
		note, rating, toMillis(updatedAt), string(encounterID), string(participantID),
	)
	if err != nil {
		return fmt.Errorf("update annotation: %w", err)
	}
	return nil
}

// Scan helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEncounter(row rowScanner) (*model.Encounter, error) {
	var e model.Encounter
	var id, eventID, low, high, initiator string
	var createdAt int64
	if err := row.Scan(&id, &eventID, &low, &high, &initiator, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrEncounterNotFound
		}
		return nil, fmt.Errorf("scan encounter: %w", err)
	}
	e.ID = model.EncounterID(id)
	e.EventID = model.EventID(eventID)
	e.ParticipantLowID = model.ParticipantID(low)
	e.ParticipantHighID = model.ParticipantID(high)
	e.InitiatorID = model.ParticipantID(initiator)
	e.CreatedAt = fromMillis(createdAt)
	return &e, nil
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var p model.Profile
	var id string
	var updatedAt int64
	var photoURL, lastName, instagram, niche, about, helpful sql.NullString
	if err := row.Scan(&id, &photoURL, &p.FirstName, &lastName, &instagram, &niche, &about, &helpful, &updatedAt); err != nil {
		return nil, err
	}
	p.ParticipantID = model.ParticipantID(id)
	p.PhotoURL = nullableString(photoURL)
	p.LastName = nullableString(lastName)
	p.Instagram = nullableString(instagram)
	p.Niche = nullableString(niche)
	p.About = nullableString(about)
	p.Helpful = nullableString(helpful)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func nullableString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	result := value.String
	return &result
}

func nullableInt(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	result := int(value.Int64)
	return &result
}
