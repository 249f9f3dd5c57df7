package student

import "time"

type Student struct {
	ID               string
	TenantID         string
	SectionID        string
	Code             string
	FullName         string
	NotifyPreference NotifyPreference
	Status           Status
	Guardians        []Guardian
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// DTO
	SectionName string
}

type Guardian struct {
	Relation Relation
	Name     string
	Address  string
}

type Relation string

const (
	RelationFather Relation = "father"
	RelationMother Relation = "mother"
)

type NotifyPreference string

const (
	NotifyFather NotifyPreference = "father"
	NotifyMother NotifyPreference = "mother"
	NotifyBoth   NotifyPreference = "both"
)

type Status string

const (
	StatusActive      Status = "active"
	StatusGraduated   Status = "graduated"
	StatusTransferred Status = "transferred"
	StatusWithdrawn   Status = "withdrawn"
)

// Section is a class group with a denormalized head count.
type Section struct {
	ID           string
	TenantID     string
	Name         string
	StudentCount int
}

func (s Student) IsActive() bool {
	return s.Status == StatusActive
}

// Recipients returns the guardians selected by the notify preference, in
// father, mother order. Guardians without an address are skipped.
func (s Student) Recipients() []Guardian {
	var out []Guardian
	for _, rel := range []Relation{RelationFather, RelationMother} {
		if !s.NotifyPreference.Includes(rel) {
			continue
		}
		for _, g := range s.Guardians {
			if g.Relation == rel && g.Address != "" {
				out = append(out, g)
			}
		}
	}
	return out
}

// Includes reports whether the preference routes messages to rel.
// An unset preference behaves like both.
func (p NotifyPreference) Includes(rel Relation) bool {
	switch p {
	case NotifyFather:
		return rel == RelationFather
	case NotifyMother:
		return rel == RelationMother
	default:
		return true
	}
}
