package repository

import (
	"context"

	"triageapi/internal/model"
)

// AuditRepository defines insert-only access to the audit ledger.
// There is no update or delete; rows are append-only by contract.
type AuditRepository interface {
	Insert(ctx context.Context, entry *model.AuditLogEntry) error
}
