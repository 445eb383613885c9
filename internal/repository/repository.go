package repository

import (
	"errors"

	"github.com/lib/pq"

	appErrors "github.com/madrasatech/madrasa-api/pkg/errors"
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

// translateUnique maps a unique constraint violation onto the shared
// sentinel so services can decide whether a duplicate is benign.
func translateUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return appErrors.ErrDuplicateKey
	}
	return err
}
