package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/percept-ai/percept-api/internal/domain"
	"github.com/percept-ai/percept-api/internal/platform/logger"
	"github.com/percept-ai/percept-api/internal/store"
)

// PostgresRecordStore implements the job.RecordStore interface using PostgreSQL.
type PostgresRecordStore struct {
	db store.DBTX
}

// NewPostgresRecordStore creates a new PostgresRecordStore.
func NewPostgresRecordStore(db store.DBTX) *PostgresRecordStore {
	return &PostgresRecordStore{
		db: db,
	}
}

// SaveRecords persists a batch of parsed records.
func (s *PostgresRecordStore) SaveRecords(ctx context.Context, records []*domain.Record) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO records (id, text, persona_id, category, attributes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, record := range records {
		var attributes []byte
		if len(record.Attributes) > 0 {
			data, err := json.Marshal(record.Attributes)
			if err != nil {
				return fmt.Errorf("failed to marshal record attributes: %w", err)
			}
			attributes = data
		}

		var personaID any
		if record.PersonaID != uuid.Nil {
			personaID = record.PersonaID
		}

		_, err := s.db.ExecContext(ctx, query,
			record.ID,
			record.Text,
			personaID,
			record.Category,
			attributes,
			record.CreatedAt,
		)

		if err != nil {
			log.Error("failed to save record",
				"record_id", record.ID,
				"error", err)
			return fmt.Errorf("failed to save record to database: %w", err)
		}
	}

	log.Debug("saved records", "count", len(records))
	return nil
}
