// Package history persists the bounded, most-recent-first list of finished
// assessments.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"bodycheck/internal/imaging"
	"bodycheck/internal/models"
	"bodycheck/internal/storage"
)

const (
	// Key is the single storage key holding the serialized record list.
	Key = "bt_records"
	// MaxRecords caps the list; older records are dropped on save.
	MaxRecords = 20
)

var (
	ErrNotFound             = errors.New("history: record not found")
	ErrConfirmationRequired = errors.New("history: deletion must be confirmed")
)

// StorageError wraps a failed persistence attempt.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store reads and writes the record list through a key-value backend.
// Read-modify-write cycles are not locked across processes.
type Store struct {
	kv    storage.KV
	width int
}

// New builds a store that downsizes images to width before persisting.
func New(kv storage.KV, width int) *Store {
	if width <= 0 {
		width = imaging.StorageWidth
	}
	return &Store{kv: kv, width: width}
}

// Save prepends a record built from the report and its images. Failures are
// logged and returned for callers that want them; they never affect the
// report already produced.
func (s *Store) Save(ctx context.Context, report models.BodyReport, images []models.CapturedImage) error {
	resized := make([]models.CapturedImage, len(images))
	for i, img := range images {
		resized[i] = img
		resized[i].DataURL = imaging.Resize(img.DataURL, s.width)
	}

	record := models.MemberRecord{
		ID:           report.ID,
		Name:         report.UserInfo.Name,
		LastTestDate: report.Date,
		Report:       report,
		Images:       resized,
	}

	records := s.List(ctx)
	records = append([]models.MemberRecord{record}, records...)
	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}

	if err := s.write(ctx, records); err != nil {
		log.Printf("history: storage failed (likely quota limit): %v", err)
		return err
	}
	log.Printf("history: record %s saved", record.ID)
	return nil
}

// List returns the stored records, most recent first. Missing or corrupt
// data yields an empty list.
func (s *Store) List(ctx context.Context) []models.MemberRecord {
	raw, err := s.kv.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("history: failed to load records: %v", err)
		}
		return []models.MemberRecord{}
	}
	var records []models.MemberRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		log.Printf("history: failed to load records: %v", err)
		return []models.MemberRecord{}
	}
	if records == nil {
		return []models.MemberRecord{}
	}
	return records
}

// Search filters records whose name contains term, ignoring case.
func (s *Store) Search(ctx context.Context, term string) []models.MemberRecord {
	records := s.List(ctx)
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return records
	}
	filtered := make([]models.MemberRecord, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), term) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func (s *Store) Get(ctx context.Context, id string) (models.MemberRecord, error) {
	for _, r := range s.List(ctx) {
		if r.ID == id {
			return r, nil
		}
	}
	return models.MemberRecord{}, ErrNotFound
}

// Delete removes a record once the user has confirmed it.
func (s *Store) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	records := s.List(ctx)
	kept := make([]models.MemberRecord, 0, len(records))
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return ErrNotFound
	}
	return s.write(ctx, kept)
}

func (s *Store) write(ctx context.Context, records []models.MemberRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return &StorageError{Op: "encode", Err: err}
	}
	if err := s.kv.Set(ctx, Key, raw); err != nil {
		return &StorageError{Op: "write", Err: err}
	}
	return nil
}
