package staff

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartsender/internal/apperr"
)

// ---------------------------------------------
// 🛠️ Back-office writes
// ---------------------------------------------

func (r *Repository) department(ctx context.Context, name string) (*Department, bool) {
	for _, d := range r.departments.Load(ctx) {
		if strings.EqualFold(d.Name, name) {
			return &d, true
		}
	}
	return nil, false
}

// CreateStaff adds an active account in an existing department. A password,
// when given, is stored as a bcrypt credential.
func (r *Repository) CreateStaff(ctx context.Context, req *CreateStaffRequest, at time.Time) (*Staff, error) {
	dept, ok := r.department(ctx, req.Department)
	if !ok {
		return nil, apperr.Validation("Unknown department")
	}
	role := req.Role
	if role == "" {
		role = RoleStaff
	}
	created := Staff{
		ID:          "staff-" + uuid.NewString(),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Department:  dept.Name,
		Institution: dept.Institution,
		Role:        role,
		Status:      StatusActive,
		CreatedAt:   at,
	}

	var hash []byte
	if req.Password != "" {
		var err error
		if hash, err = hashPassword(req.Password); err != nil {
			return nil, err
		}
	}

	err := r.staff.Update(ctx, func(items []Staff) ([]Staff, error) {
		for _, s := range items {
			if strings.EqualFold(s.Email, created.Email) {
				return nil, apperr.Validation("Email already in use")
			}
		}
		return append([]Staff{created}, items...), nil
	})
	if err != nil {
		return nil, err
	}

	if hash != nil {
		err = r.credentials.Update(ctx, func(items []Credential) ([]Credential, error) {
			return append(items, Credential{StaffID: created.ID, Email: created.Email, Hash: hash}), nil
		})
		if err != nil {
			return &created, err
		}
	}
	return &created, nil
}

// DeleteStaff removes the account and its credential. by may not delete
// itself.
func (r *Repository) DeleteStaff(ctx context.Context, id, by string) error {
	if id == by {
		return apperr.Validation("You cannot delete your own account")
	}
	err := r.staff.Update(ctx, func(items []Staff) ([]Staff, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, apperr.NotFound("Staff not found")
	})
	if err != nil {
		return err
	}
	return r.credentials.Update(ctx, func(items []Credential) ([]Credential, error) {
		kept := items[:0]
		for _, c := range items {
			if c.StaffID != id {
				kept = append(kept, c)
			}
		}
		return kept, nil
	})
}

// ToggleStatus flips the account between active and inactive and returns
// the updated record.
func (r *Repository) ToggleStatus(ctx context.Context, id, by string) (*Staff, error) {
	var updated Staff
	err := r.staff.Update(ctx, func(items []Staff) ([]Staff, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if items[i].Active() {
				if id == by {
					return nil, apperr.Validation("You cannot deactivate your own account")
				}
				items[i].Status = StatusInactive
			} else {
				items[i].Status = StatusActive
			}
			updated = items[i]
			return items, nil
		}
		return nil, apperr.NotFound("Staff not found")
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *Repository) CreateDepartment(ctx context.Context, req *DepartmentRequest, at time.Time) (*Department, error) {
	created := Department{
		ID:          "dept-" + uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.TrimSpace(req.Code),
		Institution: strings.TrimSpace(req.Institution),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   at,
	}
	err := r.departments.Update(ctx, func(items []Department) ([]Department, error) {
		if nameTaken(items, created.Name, "") {
			return nil, apperr.Validation("Department already exists")
		}
		return append(items, created), nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateDepartment replaces the editable fields. Staff keep the department
// name they were filed under.
func (r *Repository) UpdateDepartment(ctx context.Context, id string, req *DepartmentRequest) (*Department, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("Department name is required")
	}
	var updated Department
	err := r.departments.Update(ctx, func(items []Department) ([]Department, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if nameTaken(items, name, id) {
				return nil, apperr.Validation("Department already exists")
			}
			items[i].Name = name
			items[i].Code = strings.TrimSpace(req.Code)
			items[i].Institution = strings.TrimSpace(req.Institution)
			items[i].Description = strings.TrimSpace(req.Description)
			updated = items[i]
			return items, nil
		}
		return nil, apperr.NotFound("Department not found")
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *Repository) DeleteDepartment(ctx context.Context, id string) error {
	return r.departments.Update(ctx, func(items []Department) ([]Department, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, apperr.NotFound("Department not found")
	})
}

func nameTaken(items []Department, name, except string) bool {
	for _, d := range items {
		if d.ID != except && strings.EqualFold(d.Name, name) {
			return true
		}
	}
	return false
}
