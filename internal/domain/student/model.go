package student

import (
	"context"

	"github.com/campusledger/campusledger/internal/types"
)

// Student is the read-only projection of a student record owned by the
// identity directory. Billing never writes to it.
type Student struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	ClassID   string `json:"class_id"`
	Admission string `json:"admission_number"`

	types.BaseModel
}

// Directory is the external student lookup consumed by billing
type Directory interface {
	Get(ctx context.Context, id string) (*Student, error)
}
