package staff

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Fixtures is the static directory content: who can log in and which
// departments and institutions exist.
type Fixtures struct {
	Staff        []Staff       `yaml:"staff"`
	Departments  []Department  `yaml:"departments"`
	Institutions []Institution `yaml:"institutions"`
}

// LoadFixtures reads a YAML fixtures file. An empty path returns the
// built-in directory.
func LoadFixtures(path string) (*Fixtures, error) {
	if path == "" {
		return DefaultFixtures(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read staff fixtures")
	}
	var fx Fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, errors.Wrapf(err, "parse staff fixtures %s", path)
	}
	if len(fx.Staff) == 0 {
		return nil, errors.Errorf("staff fixtures %s: no staff defined", path)
	}
	seen := make(map[string]bool, len(fx.Staff))
	for i, s := range fx.Staff {
		if s.ID == "" || s.Email == "" {
			return nil, errors.Errorf("staff fixtures %s: entry %d needs id and email", path, i)
		}
		if seen[s.ID] {
			return nil, errors.Errorf("staff fixtures %s: duplicate id %s", path, s.ID)
		}
		seen[s.ID] = true
		if s.Role == "" {
			fx.Staff[i].Role = RoleStaff
		}
		if s.Status == "" {
			fx.Staff[i].Status = StatusActive
		}
	}
	return &fx, nil
}

func DefaultFixtures() *Fixtures {
	at := func(s string) time.Time {
		t, _ := time.Parse(time.RFC3339, s)
		return t
	}
	return &Fixtures{
		Staff: []Staff{
			{
				ID: "staff-001", Email: "adebayo.johnson@unilag.edu.ng",
				FirstName: "Adebayo", LastName: "Johnson",
				Department: "Computer Science", Institution: "University of Lagos",
				Role: RoleStaff, Status: StatusActive, CreatedAt: at("2024-01-15T09:00:00Z"), Password: "password123",
			},
			{
				ID: "staff-002", Email: "chioma.okafor@unilag.edu.ng",
				FirstName: "Chioma", LastName: "Okafor",
				Department: "Mathematics", Institution: "University of Lagos",
				Role: RoleStaff, Status: StatusActive, CreatedAt: at("2024-02-20T10:00:00Z"), Password: "password123",
			},
			{
				ID: "staff-003", Email: "emeka.nwankwo@oauife.edu.ng",
				FirstName: "Emeka", LastName: "Nwankwo",
				Department: "Engineering", Institution: "Obafemi Awolowo University",
				Role: RoleStaff, Status: StatusActive, CreatedAt: at("2024-03-10T08:00:00Z"), Password: "password123",
			},
			{
				ID: "staff-demo", Email: "demo@smartsender.ng",
				FirstName: "Demo", LastName: "User",
				Department: "Administration", Institution: "SmartSender Demo",
				Role: RoleStaff, Status: StatusActive, CreatedAt: at("2025-01-01T00:00:00Z"), Password: "demo1234",
			},
			{
				ID: "staff-admin", Email: "admin@smartsender.ng",
				FirstName: "Site", LastName: "Administrator",
				Department: "Administration", Institution: "SmartSender Demo",
				Role: RoleAdmin, Status: StatusActive, CreatedAt: at("2024-01-01T00:00:00Z"), Password: "admin1234",
			},
		},
		Departments: []Department{
			{ID: "dept-001", Name: "Computer Science", Code: "CSC", Institution: "University of Lagos", CreatedAt: at("2024-01-01T00:00:00Z")},
			{ID: "dept-002", Name: "Mathematics", Code: "MTH", Institution: "University of Lagos", CreatedAt: at("2024-01-01T00:00:00Z")},
			{ID: "dept-003", Name: "Engineering", Code: "ENG", Institution: "Obafemi Awolowo University", CreatedAt: at("2024-01-01T00:00:00Z")},
			{ID: "dept-004", Name: "Physics", Code: "PHY", Institution: "University of Ibadan", CreatedAt: at("2024-01-01T00:00:00Z")},
			{ID: "dept-005", Name: "Administration", Code: "ADM", Institution: "SmartSender Demo", CreatedAt: at("2024-01-01T00:00:00Z")},
		},
		Institutions: []Institution{
			{ID: "inst-001", Name: "University of Lagos", ShortName: "UNILAG", Location: "Lagos, Nigeria"},
			{ID: "inst-002", Name: "Obafemi Awolowo University", ShortName: "OAU", Location: "Ile-Ife, Osun State"},
			{ID: "inst-003", Name: "University of Ibadan", ShortName: "UI", Location: "Ibadan, Oyo State"},
			{ID: "inst-004", Name: "Ahmadu Bello University", ShortName: "ABU", Location: "Zaria, Kaduna State"},
		},
	}
}
