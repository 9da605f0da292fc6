package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Migorithm/IAM/core/es"
)

// mapError translates driver failures into the core error taxonomy:
// integrity-constraint violations (class 23, including the unique violation
// that realizes optimistic concurrency) become es.ErrIntegrity, everything
// else transport-shaped becomes es.ErrOperational.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "23") {
			return fmt.Errorf("%w: %s (%s)", es.ErrIntegrity, pgErr.Message, pgErr.Code)
		}
		return fmt.Errorf("%w: %s (%s)", es.ErrOperational, pgErr.Message, pgErr.Code)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", es.ErrOperational, err)
	}

	return fmt.Errorf("%w: %v", es.ErrOperational, err)
}
