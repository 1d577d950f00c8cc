package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name            string
		classCode       string
		classDetail     string
		wantSpecialties []string
		wantCategories  []string
	}{
		{
			name:            "general contractor",
			classCode:       "B",
			wantSpecialties: []string{"General Contracting"},
			wantCategories:  []string{"General"},
		},
		{
			name:            "kitchen and bath dual listing",
			classCode:       "KB-1",
			wantSpecialties: []string{"Bathroom Remodeling", "Kitchen Renovation"},
			wantCategories:  []string{"Kitchen & Bath"},
		},
		{
			name:            "residential and commercial variants agree",
			classCode:       "C-37",
			wantSpecialties: []string{"Plumbing"},
			wantCategories:  []string{"Plumbing"},
		},
		{
			name:            "code is case and whitespace insensitive",
			classCode:       " cr-42 ",
			wantSpecialties: []string{"Roofing"},
			wantCategories:  []string{"Roofing"},
		},
		{
			name:            "keyword detail augments the code",
			classCode:       "B-2",
			classDetail:     "General Residential incl. Kitchen work",
			wantSpecialties: []string{"General Contracting", "Kitchen Renovation", "Residential Remodeling"},
			wantCategories:  []string{"General", "Kitchen & Bath"},
		},
		{
			name:            "keyword matches without a known code",
			classCode:       "ZZ-99",
			classDetail:     "Swimming Pool Service and Repair",
			wantSpecialties: []string{"Pool Installation"},
			wantCategories:  []string{"Outdoor & Landscaping"},
		},
		{
			name:            "unknown code falls back",
			classCode:       "ZZ-99",
			wantSpecialties: []string{FallbackSpecialty},
			wantCategories:  []string{FallbackCategory},
		},
		{
			name:            "empty input falls back",
			wantSpecialties: []string{FallbackSpecialty},
			wantCategories:  []string{FallbackCategory},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.classCode, tt.classDetail)
			assert.Equal(t, tt.wantSpecialties, got.Specialties)
			assert.Equal(t, tt.wantCategories, got.Categories)
		})
	}
}

// Every classification yields at least one specialty and one category, no
// matter how malformed the input.
func TestClassifyIsTotal(t *testing.T) {
	inputs := []struct{ code, detail string }{
		{"", ""},
		{"   ", "\t"},
		{"NOT-A-CODE", ""},
		{"b", "unrelated detail text"},
		{"KB-2", "Remodeling"},
		{"\x00", "\x00"},
	}

	for _, in := range inputs {
		got := Classify(in.code, in.detail)
		require.NotEmpty(t, got.Specialties)
		require.NotEmpty(t, got.Categories)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	first := Classify("KB-1", "Kitchen and Bath remodel with tile and flooring")
	for i := 0; i < 10; i++ {
		again := Classify("KB-1", "Kitchen and Bath remodel with tile and flooring")
		assert.Equal(t, first, again)
	}
}

func TestUnion(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		incoming []string
		want     []string
	}{
		{
			name:     "disjoint sets merge sorted",
			existing: []string{"Plumbing"},
			incoming: []string{"Electrical"},
			want:     []string{"Electrical", "Plumbing"},
		},
		{
			name:     "duplicates collapse",
			existing: []string{"Roofing", "Plumbing"},
			incoming: []string{"Plumbing"},
			want:     []string{"Plumbing", "Roofing"},
		},
		{
			name:     "existing values never drop",
			existing: []string{"Custom Woodwork"},
			incoming: []string{"General Contracting"},
			want:     []string{"Custom Woodwork", "General Contracting"},
		},
		{
			name:     "blank entries are ignored",
			existing: []string{"", "  "},
			incoming: []string{"HVAC"},
			want:     []string{"HVAC"},
		},
		{
			name:     "both empty yields empty",
			existing: nil,
			incoming: nil,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Union(tt.existing, tt.incoming)
			assert.Equal(t, tt.want, got)

			// Union never shrinks: everything non-blank from existing survives.
			for _, s := range tt.existing {
				if s != "" && s != "  " {
					assert.Contains(t, got, s)
				}
			}
		})
	}
}
