package postgresql

import (
	"context"
	"time"

	"github.com/waitless/waitless-backend-go/internal/domain/ticket"
	"github.com/waitless/waitless-backend-go/internal/pkg/database"
)

type sequenceRepositoryImpl struct {
	db *database.DB
}

func NewSequenceRepository(db *database.DB) ticket.SequenceRepository {
	return &sequenceRepositoryImpl{db: db}
}

// Next implements ticket.SequenceRepository. The upsert takes a row lock on
// (counter_id, service_date) that concurrent issuers queue behind, so a
// rolled-back issue releases its number to the next caller. The counter never
// falls behind the highest ticket already stored for the day, so a row that
// was reset or lost cannot hand out a taken number twice.
func (r *sequenceRepositoryImpl) Next(ctx context.Context, counterID string, serviceDate time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		WITH issued AS (
			SELECT COALESCE(MAX(sequence), 0) AS max_sequence
			FROM tickets
			WHERE counter_id = $1 AND service_date = $2
		)
		INSERT INTO counter_sequences (counter_id, service_date, last_sequence)
		SELECT $1, $2, issued.max_sequence + 1 FROM issued
		ON CONFLICT (counter_id, service_date)
		DO UPDATE SET
			last_sequence = GREATEST(counter_sequences.last_sequence, EXCLUDED.last_sequence - 1) + 1,
			updated_at = NOW()
		RETURNING last_sequence
	`

	var seq int
	err := q.QueryRow(ctx, query, counterID, serviceDate).Scan(&seq)
	return seq, err
}
