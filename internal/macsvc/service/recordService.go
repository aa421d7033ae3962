package service

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/morshedkoli/macapp/internal/comm"
	"github.com/morshedkoli/macapp/internal/macsvc/apperr"
	"github.com/morshedkoli/macapp/internal/macsvc/models"
	"github.com/morshedkoli/macapp/internal/macsvc/normalize"
	"github.com/morshedkoli/macapp/internal/macsvc/store"
)

// RecentWindow is how far back stats count a record as recent.
const RecentWindow = 24 * time.Hour

var (
	errNameRequired = apperr.Validation("name", "Name is required")
	errInvalidMac   = apperr.Validation("mac", "Invalid MAC. Use 12 hex digits (colon/dash optional).")
	errInvalidPhone = apperr.Validation("phone", "Invalid phone. Use 6 to 20 characters.")
	errInvalidID    = apperr.Validation("id", "Invalid ID format")
	errNotFound     = apperr.NotFound("Record not found")
	errDuplicateMac = apperr.Conflict("mac", "MAC address already exists")
)

// Notifier receives record events after successful writes. It must not block.
type Notifier interface {
	Notify(event comm.RecordEvent)
}

// RecordService owns the record set: it shapes input, enforces the field
// rules and maps store outcomes to apperr kinds.
type RecordService struct {
	store    store.RecordStore
	notifier Notifier
	instance string
	now      func() time.Time
}

// NewRecordService creates a new RecordService instance
func NewRecordService(recordStore store.RecordStore, notifier Notifier, instance string) *RecordService {
	return &RecordService{
		store:    recordStore,
		notifier: notifier,
		instance: instance,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CreateRecordInput struct {
	Name  string `json:"name"`
	Mac   string `json:"mac"`
	Phone string `json:"phone"`
}

// Create validates and inserts a record. A second record with the same
// canonical MAC fails with a conflict, decided by the store's unique index.
func (s *RecordService) Create(ctx context.Context, in CreateRecordInput) (models.Record, error) {
	name := normalize.Name(in.Name)
	if name == "" {
		return models.Record{}, errNameRequired
	}
	mac, err := normalize.Mac(in.Mac)
	if err != nil {
		return models.Record{}, errInvalidMac
	}
	phone := normalize.Phone(in.Phone)
	if !normalize.IsValidPhone(phone) {
		return models.Record{}, errInvalidPhone
	}

	now := s.now()
	rec, err := s.store.Insert(ctx, models.Record{
		Name:      name,
		Mac:       mac,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return models.Record{}, s.storeError("create", err)
	}

	log.Infof("record %s created for mac %s", rec.ID, rec.Mac)
	s.notify(comm.RecordCreated, rec)
	return rec, nil
}

func (s *RecordService) Get(ctx context.Context, id string) (models.Record, error) {
	if !s.store.ValidID(id) {
		return models.Record{}, errInvalidID
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Record{}, s.storeError("get", err)
	}
	return rec, nil
}

// Update applies only the supplied fields, each checked with the create
// rules. updatedAt is refreshed even when nothing else is supplied.
func (s *RecordService) Update(ctx context.Context, id string, patch models.RecordPatch) (models.Record, error) {
	if !s.store.ValidID(id) {
		return models.Record{}, errInvalidID
	}

	var fields store.RecordFields
	if patch.Name != nil {
		name := normalize.Name(*patch.Name)
		if name == "" {
			return models.Record{}, errNameRequired
		}
		fields.Name = &name
	}
	if patch.Mac != nil {
		mac, err := normalize.Mac(*patch.Mac)
		if err != nil {
			return models.Record{}, errInvalidMac
		}
		fields.Mac = &mac
	}
	if patch.Phone != nil {
		phone := normalize.Phone(*patch.Phone)
		if !normalize.IsValidPhone(phone) {
			return models.Record{}, errInvalidPhone
		}
		fields.Phone = &phone
	}

	rec, err := s.store.Update(ctx, id, fields, s.now())
	if err != nil {
		return models.Record{}, s.storeError("update", err)
	}

	s.notify(comm.RecordUpdated, rec)
	return rec, nil
}

func (s *RecordService) Delete(ctx context.Context, id string) error {
	if !s.store.ValidID(id) {
		return errInvalidID
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return s.storeError("delete", err)
	}

	log.Infof("record %s deleted", id)
	s.notify(comm.RecordDeleted, models.Record{ID: id})
	return nil
}

// Find returns at most store.MaxResults records, newest first. The mac
// filter is compared in canonical form; input that is not a whole MAC
// matches nothing.
func (s *RecordService) Find(ctx context.Context, filter models.RecordFilter) ([]models.Record, error) {
	filter.Name = normalize.Name(filter.Name)
	filter.Phone = normalize.Phone(filter.Phone)
	filter.Limit = store.MaxResults

	mac := strings.TrimSpace(filter.Mac)
	filter.Mac = ""
	if mac != "" {
		// every stored MAC has exactly 12 digits
		filter.Mac = normalize.MacDigits(mac)
		if len(filter.Mac) != normalize.MacLength {
			return []models.Record{}, nil
		}
	}

	records, err := s.store.Find(ctx, filter)
	if err != nil {
		return nil, s.storeError("find", err)
	}
	return records, nil
}

func (s *RecordService) Stats(ctx context.Context) (models.RecordStats, error) {
	stats, err := s.store.Stats(ctx, s.now().Add(-RecentWindow))
	if err != nil {
		return models.RecordStats{}, s.storeError("stats", err)
	}
	return stats, nil
}

func (s *RecordService) storeError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateMac):
		return errDuplicateMac
	case errors.Is(err, store.ErrNotFound):
		return errNotFound
	case errors.Is(err, store.ErrInvalidID):
		return errInvalidID
	}
	log.Errorf("record %s failed: %v", op, err)
	return apperr.Store("Database error", err)
}

func (s *RecordService) notify(kind comm.EventType, rec models.Record) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(comm.RecordEvent{
		Type:     kind,
		Record:   rec,
		Instance: s.instance,
		At:       s.now(),
	})
}
