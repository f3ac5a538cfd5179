package staff

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"smartsender/internal/apperr"
	"smartsender/internal/store"
)

// Repository is the staff directory. Staff, departments and credentials
// live in the store, seeded from the fixtures.
type Repository struct {
	staff        *store.Collection[Staff]
	departments  *store.Collection[Department]
	credentials  *store.Collection[Credential]
	institutions []Institution
}

func NewRepository(st *store.Store, fx *Fixtures) (*Repository, error) {
	creds := make([]Credential, 0, len(fx.Staff))
	for _, s := range fx.Staff {
		if s.Password == "" {
			continue
		}
		hash, err := hashPassword(s.Password)
		if err != nil {
			return nil, err
		}
		creds = append(creds, Credential{StaffID: s.ID, Email: strings.ToLower(s.Email), Hash: hash})
	}

	seed := func() []Staff {
		out := make([]Staff, len(fx.Staff))
		copy(out, fx.Staff)
		for i := range out {
			out[i].Password = ""
		}
		return out
	}

	return &Repository{
		staff:        store.NewCollection(st, store.KeyStaff, seed),
		departments:  store.NewCollection(st, store.KeyDepartments, cloneOf(fx.Departments)),
		credentials:  store.NewCollection(st, store.KeyCredentials, cloneOf(creds)),
		institutions: fx.Institutions,
	}, nil
}

func cloneOf[T any](items []T) func() []T {
	return func() []T {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}
}

func hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
}

func (r *Repository) All(ctx context.Context) []Staff {
	return r.staff.Load(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (*Staff, error) {
	for _, s := range r.staff.Load(ctx) {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, apperr.NotFound("Staff not found")
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Staff, error) {
	for _, s := range r.staff.Load(ctx) {
		if strings.EqualFold(s.Email, email) {
			return &s, nil
		}
	}
	return nil, apperr.NotFound("Staff account not found")
}

func (r *Repository) ByDepartment(ctx context.Context, department string) []Staff {
	out := []Staff{}
	for _, s := range r.staff.Load(ctx) {
		if s.Department == department {
			out = append(out, s)
		}
	}
	return out
}

// Search matches first name, last name or email, case-insensitively.
func (r *Repository) Search(ctx context.Context, query string) []Staff {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []Staff{}
	for _, s := range r.staff.Load(ctx) {
		if Matches(s, q) {
			out = append(out, s)
		}
	}
	return out
}

// Matches reports whether lower-cased q is contained in the staff member's
// first name, last name or email.
func Matches(s Staff, q string) bool {
	return strings.Contains(strings.ToLower(s.FirstName), q) ||
		strings.Contains(strings.ToLower(s.LastName), q) ||
		strings.Contains(strings.ToLower(s.Email), q)
}

func (r *Repository) CheckPassword(ctx context.Context, email, password string) bool {
	email = strings.ToLower(email)
	for _, c := range r.credentials.Load(ctx) {
		if c.Email == email {
			return bcrypt.CompareHashAndPassword(c.Hash, []byte(password)) == nil
		}
	}
	// Burn comparable time so unknown emails are not distinguishable.
	bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
	return false
}

func (r *Repository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.staff.Update(ctx, func(items []Staff) ([]Staff, error) {
		for i := range items {
			if items[i].ID == id {
				items[i].LastLogin = &at
				return items, nil
			}
		}
		return nil, apperr.NotFound("Staff not found")
	})
}

func (r *Repository) Departments(ctx context.Context) []Department {
	return r.departments.Load(ctx)
}

func (r *Repository) Institutions() []Institution {
	out := make([]Institution, len(r.institutions))
	copy(out, r.institutions)
	return out
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("smartsender"), bcrypt.MinCost)
