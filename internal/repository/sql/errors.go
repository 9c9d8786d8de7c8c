package sql

import (
	"errors"

	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PostgreSQL error codes. See https://www.postgresql.org/docs/16/errcodes-appendix.html
const (
	pqUniqueViolationErrCode = "23505"
	pqCheckViolationErrCode  = "23514"
)

func isConstraintViolation(code string) bool {
	return code == pqUniqueViolationErrCode || code == pqCheckViolationErrCode
}

// translateError converts driver constraint violations into
// *repository.ConstraintError and returns any other error unchanged.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && isConstraintViolation(pgErr.Code) {
		return &repository.ConstraintError{Constraint: pgErr.ConstraintName, Detail: firstNonEmpty(pgErr.Detail, pgErr.Message)}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && isConstraintViolation(string(pqErr.Code)) {
		return &repository.ConstraintError{Constraint: pqErr.Constraint, Detail: firstNonEmpty(pqErr.Detail, pqErr.Message)}
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
