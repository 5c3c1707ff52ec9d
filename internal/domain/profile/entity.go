// Package profile defines the registered user and their nutrition attributes
package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/nutrition"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/shared"
)

// Sex is the biological sex used for nutrition estimates
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// Valid reports whether s is one of the known values
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// Label returns the display form
func (s Sex) Label() string {
	if s == SexMale {
		return "Male"
	}
	return "Female"
}

// Profile is a registered user. It is created at registration and never
// edited afterwards.
type Profile struct {
	shared.AggregateRoot

	id                  uuid.UUID
	username            string
	passwordHash        string
	age                 int
	sex                 Sex
	weightKg            float64
	heightCm            float64
	dietaryRestrictions string
	dietaryGoals        string
	createdAt           time.Time
	updatedAt           time.Time
}

// Params carries the registration fields
type Params struct {
	Username            string
	Password            string
	Age                 int
	Sex                 Sex
	WeightKg            float64
	HeightCm            float64
	DietaryRestrictions string
	DietaryGoals        string
}

// NewProfile validates params and hashes the password
func NewProfile(p Params) (*Profile, error) {
	username := NormalizeUsername(p.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(p.Password); err != nil {
		return nil, err
	}
	if p.Age <= 0 {
		return nil, ErrInvalidAge
	}
	if !p.Sex.Valid() {
		return nil, ErrInvalidSex
	}
	if p.WeightKg <= 0 {
		return nil, ErrInvalidWeight
	}
	if p.HeightCm <= 0 {
		return nil, ErrInvalidHeight
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	goals := p.DietaryGoals
	if strings.TrimSpace(goals) == "" {
		goals = nutrition.DefaultGoalsText
	}

	now := time.Now()
	profile := &Profile{
		id:                  uuid.New(),
		username:            username,
		passwordHash:        string(hashedPassword),
		age:                 p.Age,
		sex:                 p.Sex,
		weightKg:            p.WeightKg,
		heightCm:            p.HeightCm,
		dietaryRestrictions: p.DietaryRestrictions,
		dietaryGoals:        goals,
		createdAt:           now,
		updatedAt:           now,
	}
	profile.AddEvent(NewProfileRegisteredEvent(profile.id, profile.username))

	return profile, nil
}

// Record is the stored form of a profile, used by repositories to rebuild it.
type Record struct {
	ID                  uuid.UUID
	Username            string
	PasswordHash        string
	Age                 int
	Sex                 Sex
	WeightKg            float64
	HeightCm            float64
	DietaryRestrictions string
	DietaryGoals        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Rehydrate rebuilds a profile from storage without validation or events
func Rehydrate(r Record) *Profile {
	return &Profile{
		id:                  r.ID,
		username:            r.Username,
		passwordHash:        r.PasswordHash,
		age:                 r.Age,
		sex:                 r.Sex,
		weightKg:            r.WeightKg,
		heightCm:            r.HeightCm,
		dietaryRestrictions: r.DietaryRestrictions,
		dietaryGoals:        r.DietaryGoals,
		createdAt:           r.CreatedAt,
		updatedAt:           r.UpdatedAt,
	}
}

// Record returns the stored form of p
func (p *Profile) Record() Record {
	return Record{
		ID:                  p.id,
		Username:            p.username,
		PasswordHash:        p.passwordHash,
		Age:                 p.age,
		Sex:                 p.sex,
		WeightKg:            p.weightKg,
		HeightCm:            p.heightCm,
		DietaryRestrictions: p.dietaryRestrictions,
		DietaryGoals:        p.dietaryGoals,
		CreatedAt:           p.createdAt,
		UpdatedAt:           p.updatedAt,
	}
}

// ID returns the profile's ID
func (p *Profile) ID() uuid.UUID {
	return p.id
}

// Username returns the unique username
func (p *Profile) Username() string {
	return p.username
}

// Age returns the age in years
func (p *Profile) Age() int {
	return p.age
}

// Sex returns the sex
func (p *Profile) Sex() Sex {
	return p.sex
}

// WeightKg returns the weight in kilograms
func (p *Profile) WeightKg() float64 {
	return p.weightKg
}

// HeightCm returns the height in centimeters
func (p *Profile) HeightCm() float64 {
	return p.heightCm
}

// DietaryRestrictions returns the free-text restrictions
func (p *Profile) DietaryRestrictions() string {
	return p.dietaryRestrictions
}

// DietaryGoals returns the stored goals text
func (p *Profile) DietaryGoals() string {
	return p.dietaryGoals
}

// CreatedAt returns when the profile was registered
func (p *Profile) CreatedAt() time.Time {
	return p.createdAt
}

// CheckPassword verifies if the provided password matches
func (p *Profile) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(p.passwordHash), []byte(password))
}

// Snapshot returns the session-safe copy of the profile, without the
// password hash.
func (p *Profile) Snapshot() Snapshot {
	return Snapshot{
		Username:            p.username,
		Age:                 p.age,
		Sex:                 p.sex,
		WeightKg:            p.weightKg,
		HeightCm:            p.heightCm,
		DietaryRestrictions: p.dietaryRestrictions,
		DietaryGoals:        p.dietaryGoals,
	}
}

// NormalizeUsername strips surrounding whitespace. Registration and login
// both apply it; matching stays case-sensitive.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func validateUsername(username string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if len(username) > 64 {
		return ErrUsernameTooLong
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	// bcrypt only reads the first 72 bytes
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}
