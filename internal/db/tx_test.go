package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorClassification(t *testing.T) {
	serialization := &pgconn.PgError{Code: codeSerializationFailure}
	deadlock := &pgconn.PgError{Code: codeDeadlockDetected}
	unique := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "customers_phone_key"}
	fk := &pgconn.PgError{Code: codeForeignKeyViolation}

	if !IsRetryable(serialization) || !IsRetryable(fmt.Errorf("wrapped: %w", deadlock)) {
		t.Fatalf("expected serialization failures and deadlocks to be retryable")
	}
	if IsRetryable(unique) || IsRetryable(errors.New("boom")) {
		t.Fatalf("unexpected retryable classification")
	}
	if !IsUniqueViolation(unique, "") || !IsUniqueViolation(unique, "customers_phone_key") {
		t.Fatalf("expected unique violation")
	}
	if IsUniqueViolation(unique, "customers_chat_id_key") {
		t.Fatalf("constraint name should be matched")
	}
	if !IsForeignKeyViolation(fk) || IsForeignKeyViolation(unique) {
		t.Fatalf("unexpected foreign key classification")
	}
}
