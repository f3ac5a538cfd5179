package staff

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartsender/internal/apperr"
	"smartsender/internal/store"
)

const issuer = "smartsender"

type Service struct {
	repo      *Repository
	sessions  *store.Collection[Session]
	jwtSecret string
	ttl       time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewService(repo *Repository, st *store.Store, secret string, ttl time.Duration, log *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		sessions:  store.NewCollection[Session](st, store.KeyToken, nil),
		jwtSecret: secret,
		ttl:       ttl,
		log:       log.Named("staff"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if !s.repo.CheckPassword(ctx, req.Email, req.Password) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	u, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if !u.Active() {
		s.log.Info("login refused for inactive account", zap.String("staff_id", u.ID))
		return nil, apperr.Forbidden("Account is inactive")
	}

	now := s.now()
	session := Session{
		ID:        uuid.NewString(),
		StaffID:   u.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		StaffID: u.ID,
		Name:    u.FullName(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})
	ss, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	err = s.sessions.Update(ctx, func(items []Session) ([]Session, error) {
		live := items[:0]
		for _, it := range items {
			if it.ExpiresAt.After(now) {
				live = append(live, it)
			}
		}
		return append(live, session), nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.TouchLogin(ctx, u.ID, now); err != nil {
		s.log.Warn("could not record last login", zap.String("staff_id", u.ID), zap.Error(err))
	}
	u.LastLogin = &now

	s.log.Info("staff logged in", zap.String("staff_id", u.ID))
	return &LoginResponse{AccessToken: ss, ExpiresAt: session.ExpiresAt, Staff: *u}, nil
}

// Logout revokes the session behind tokenString.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return err
	}
	now := s.now()
	return s.sessions.Update(ctx, func(items []Session) ([]Session, error) {
		for i := range items {
			if items[i].ID == claims.ID && items[i].RevokedAt == nil {
				items[i].RevokedAt = &now
			}
		}
		return items, nil
	})
}

// ValidateToken returns the staff id and display name carried by a valid,
// unrevoked token whose account still exists and is active.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (string, string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", "", err
	}
	for _, it := range s.sessions.Load(ctx) {
		if it.ID == claims.ID && it.RevokedAt != nil {
			return "", "", apperr.Unauthorized("Token revoked")
		}
	}
	u, err := s.repo.Get(ctx, claims.StaffID)
	if err != nil || !u.Active() {
		return "", "", apperr.Unauthorized("Account unavailable")
	}
	return claims.StaffID, claims.Name, nil
}

func (s *Service) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, apperr.Unauthorized("Invalid token")
	}
	return claims, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Staff, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) All(ctx context.Context) []Staff {
	return s.repo.All(ctx)
}

func (s *Service) ByDepartment(ctx context.Context, department string) []Staff {
	return s.repo.ByDepartment(ctx, department)
}

func (s *Service) Search(ctx context.Context, query string) []Staff {
	return s.repo.Search(ctx, query)
}

func (s *Service) Departments(ctx context.Context) []Department {
	return s.repo.Departments(ctx)
}

func (s *Service) Institutions() []Institution {
	return s.repo.Institutions()
}

// IsAdmin reports whether staffID is an active admin.
func (s *Service) IsAdmin(ctx context.Context, staffID string) bool {
	u, err := s.repo.Get(ctx, staffID)
	return err == nil && u.Active() && u.IsAdmin()
}

// ---------------------------------------------
// 🛠️ Admin
// ---------------------------------------------

func (s *Service) CreateStaff(ctx context.Context, req *CreateStaffRequest, by string) (*Staff, error) {
	created, err := s.repo.CreateStaff(ctx, req, s.now())
	if err != nil {
		if created != nil {
			s.log.Warn("staff created without a stored password", zap.String("staff_id", created.ID), zap.Error(err))
			return created, nil
		}
		return nil, err
	}
	s.log.Info("staff created", zap.String("staff_id", created.ID), zap.String("by", by))
	return created, nil
}

func (s *Service) DeleteStaff(ctx context.Context, id, by string) error {
	if err := s.repo.DeleteStaff(ctx, id, by); err != nil {
		return err
	}
	s.log.Info("staff deleted", zap.String("staff_id", id), zap.String("by", by))
	return nil
}

func (s *Service) ToggleStatus(ctx context.Context, id, by string) (*Staff, error) {
	u, err := s.repo.ToggleStatus(ctx, id, by)
	if err != nil {
		return nil, err
	}
	s.log.Info("staff status changed", zap.String("staff_id", id), zap.String("status", string(u.Status)), zap.String("by", by))
	return u, nil
}

func (s *Service) CreateDepartment(ctx context.Context, req *DepartmentRequest) (*Department, error) {
	d, err := s.repo.CreateDepartment(ctx, req, s.now())
	if err != nil {
		return nil, err
	}
	s.log.Info("department created", zap.String("department_id", d.ID), zap.String("name", d.Name))
	return d, nil
}

func (s *Service) UpdateDepartment(ctx context.Context, id string, req *DepartmentRequest) (*Department, error) {
	return s.repo.UpdateDepartment(ctx, id, req)
}

func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	if err := s.repo.DeleteDepartment(ctx, id); err != nil {
		return err
	}
	s.log.Info("department deleted", zap.String("department_id", id))
	return nil
}
