package pg

import (
	"context"

	"github.com/campusledger/campusledger/internal/domain/student"
	"github.com/campusledger/campusledger/internal/logger"
	"github.com/campusledger/campusledger/internal/postgres"
	"github.com/campusledger/campusledger/internal/types"
)

type studentDirectory struct {
	db     postgres.IClient
	logger *logger.Logger
}

// NewStudentDirectory creates a read-only lookup over the students table
// maintained by the identity service
func NewStudentDirectory(db postgres.IClient, log *logger.Logger) student.Directory {
	return &studentDirectory{db: db, logger: log}
}

func (d *studentDirectory) Get(ctx context.Context, id string) (*student.Student, error) {
	query := `SELECT id, full_name, email, class_id, admission_number,
		tenant_id, status, created_at, updated_at, created_by, updated_by
		FROM students
		WHERE id = $1 AND tenant_id = $2 AND status != $3`

	var s student.Student
	err := d.db.Querier(ctx).QueryRow(ctx, query, id, types.GetTenantID(ctx), types.StatusDeleted).Scan(
		&s.ID, &s.FullName, &s.Email, &s.ClassID, &s.Admission,
		&s.TenantID, &s.Status, &s.CreatedAt, &s.UpdatedAt, &s.CreatedBy, &s.UpdatedBy,
	)
	if err != nil {
		return nil, wrapErr(err, "Student")
	}
	return &s, nil
}
