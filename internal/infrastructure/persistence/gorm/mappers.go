package gorm

import (
	"github.com/JosephChataignon/hAIckers-team/internal/domain/profile"
)

// ProfileToModel converts a domain profile to its GORM model
func ProfileToModel(p *profile.Profile) *ProfileModel {
	r := p.Record()
	return &ProfileModel{
		ID:                  r.ID,
		Username:            r.Username,
		PasswordHash:        r.PasswordHash,
		Age:                 r.Age,
		Sex:                 string(r.Sex),
		WeightKg:            r.WeightKg,
		HeightCm:            r.HeightCm,
		DietaryRestrictions: r.DietaryRestrictions,
		DietaryGoals:        r.DietaryGoals,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// ModelToProfile converts a GORM model back to a domain profile
func ModelToProfile(m *ProfileModel) *profile.Profile {
	return profile.Rehydrate(profile.Record{
		ID:                  m.ID,
		Username:            m.Username,
		PasswordHash:        m.PasswordHash,
		Age:                 m.Age,
		Sex:                 profile.Sex(m.Sex),
		WeightKg:            m.WeightKg,
		HeightCm:            m.HeightCm,
		DietaryRestrictions: m.DietaryRestrictions,
		DietaryGoals:        m.DietaryGoals,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	})
}
