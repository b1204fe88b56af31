package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lernerlab/medconv/internal/models"
)

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		name     string
		identity models.SessionIdentity
		skip     bool
	}{
		{
			name:     "blank subject",
			identity: models.SessionIdentity{Date: "04/18/19", MSN: "RR20_Left"},
			skip:     true,
		},
		{
			name:     "excluded subject",
			identity: models.SessionIdentity{SubjectID: "95.259", Date: "04/18/19", MSN: "RR20_Left"},
			skip:     true,
		},
		{
			name:     "excluded subject with zero padding",
			identity: models.SessionIdentity{SubjectID: "095.259", Date: "04/18/19", MSN: "RR20_Left"},
			skip:     true,
		},
		{
			name:     "excluded subject-date",
			identity: models.SessionIdentity{SubjectID: "334.394", Date: "07/21/20", MSN: "FOOD_RI 60 LEFT TTL"},
			skip:     true,
		},
		{
			name:     "same subject on another date converts",
			identity: models.SessionIdentity{SubjectID: "334.394", Date: "07/22/20", MSN: "FOOD_RI 60 LEFT TTL"},
			skip:     false,
		},
		{
			name:     "irrelevant program",
			identity: models.SessionIdentity{SubjectID: "96.259", Date: "04/18/19", MSN: "Magazine Training 1 hr"},
			skip:     true,
		},
		{
			name:     "misspelled habit training program is excluded",
			identity: models.SessionIdentity{SubjectID: "96.259", Date: "04/18/19", MSN: "FOOD_FR1 Hapit Training TTL"},
			skip:     true,
		},
		{
			name: "excluded individual run",
			identity: models.SessionIdentity{
				SubjectID: "139.298", Date: "09/20/19", StartTime: "09:42:54", MSN: "RI 60 RIGHT STIM",
			},
			skip: true,
		},
		{
			name: "same run identity with box recorded still skips",
			identity: models.SessionIdentity{
				SubjectID: "139.298", Date: "09/20/19", StartTime: "09:42:54", MSN: "RI 60 RIGHT STIM", Box: "3",
			},
			skip: true,
		},
		{
			name:     "ordinary session converts",
			identity: models.SessionIdentity{SubjectID: "96.259", Date: "04/18/19", MSN: "RR20_Left"},
			skip:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, skip := ShouldSkip(tt.identity)
			assert.Equal(t, tt.skip, skip)
			if skip {
				assert.NotEmpty(t, reason, "skips must carry a reason for the run report")
			} else {
				assert.Empty(t, reason)
			}
		})
	}
}

func TestCanonicalSubjectID(t *testing.T) {
	assert.Equal(t, "266.477", CanonicalSubjectID("266"))
	assert.Equal(t, "262.478", CanonicalSubjectID("262.259.478"))
	assert.Equal(t, "96.259", CanonicalSubjectID("96.259"))
	assert.Equal(t, "unknown", CanonicalSubjectID("unknown"))
}
