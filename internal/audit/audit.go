package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/model"
	"github.com/haulops-platform/api/internal/store"
)

type Logger struct {
	s *store.Store
}

func NewLogger(s *store.Store) *Logger {
	return &Logger{s: s}
}

type Entry struct {
	TenantID   uuid.UUID
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	RequestID  string
	Metadata   map[string]any
}

func (l *Logger) Log(ctx context.Context, entry Entry) error {
	metadata := []byte("{}")
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = encoded
	}

	rec := model.AuditEntry{
		ID:         uuid.New(),
		TenantID:   entry.TenantID,
		UserID:     entry.UserID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   metadata,
	}
	if entry.RequestID != "" {
		rec.RequestID = &entry.RequestID
	}

	if err := l.s.InsertAuditEntry(ctx, rec); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
