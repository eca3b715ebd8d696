package models

import (
	"errors"
	"testing"
)

const testDim = 384

func validDoc() *EpisodeDocument {
	return &EpisodeDocument{
		SeasonNumber:     1,
		EpisodeNumber:    "01",
		Title:            "Welcome to the Hellmouth",
		Airdate:          "March 10, 1997",
		Summary:          []string{"A new student arrives in town and strange things start happening."},
		SummaryEmbedding: make([]float32, testDim),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EpisodeDocument)
		wantErr bool
		field   string
	}{
		{
			name:   "valid document",
			mutate: func(d *EpisodeDocument) {},
		},
		{
			name:    "zero season number",
			mutate:  func(d *EpisodeDocument) { d.SeasonNumber = 0 },
			wantErr: true,
			field:   "season_number",
		},
		{
			name:    "unpadded episode number",
			mutate:  func(d *EpisodeDocument) { d.EpisodeNumber = "1" },
			wantErr: true,
			field:   "episode_number",
		},
		{
			name:    "empty title",
			mutate:  func(d *EpisodeDocument) { d.Title = "" },
			wantErr: true,
			field:   "title",
		},
		{
			name:    "numeric airdate",
			mutate:  func(d *EpisodeDocument) { d.Airdate = "1997-03-10" },
			wantErr: true,
			field:   "airdate",
		},
		{
			name:    "empty summary",
			mutate:  func(d *EpisodeDocument) { d.Summary = nil },
			wantErr: true,
			field:   "summary",
		},
		{
			name:    "short summary paragraph",
			mutate:  func(d *EpisodeDocument) { d.Summary = []string{"too short"} },
			wantErr: true,
			field:   "summary",
		},
		{
			name:    "wrong summary embedding dimension",
			mutate:  func(d *EpisodeDocument) { d.SummaryEmbedding = make([]float32, 300) },
			wantErr: true,
			field:   "summary_embedding",
		},
		{
			name: "wrong synopsis embedding dimension",
			mutate: func(d *EpisodeDocument) {
				d.Synopsis = []string{"a synopsis paragraph"}
				d.SynopsisEmbedding = make([]float32, 1)
			},
			wantErr: true,
			field:   "synopsis_embedding",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(doc)

			err := doc.Validate(testDim)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Validate() field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestValidateStored_RequiresSummaryEmbedding(t *testing.T) {
	doc := validDoc()
	doc.SummaryEmbedding = nil

	err := doc.ValidateStored(testDim)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ValidateStored() error = %v, want *ValidationError", err)
	}
	if verr.Field != "summary_embedding" {
		t.Errorf("field = %q, want summary_embedding", verr.Field)
	}
}

func TestValidateContiguity(t *testing.T) {
	mk := func(season int, episode string) *EpisodeDocument {
		d := validDoc()
		d.SeasonNumber = season
		d.EpisodeNumber = episode
		return d
	}

	tests := []struct {
		name    string
		docs    []*EpisodeDocument
		wantErr bool
	}{
		{
			name: "two contiguous seasons",
			docs: []*EpisodeDocument{
				mk(1, "01"), mk(1, "02"),
				mk(2, "01"),
			},
		},
		{
			name:    "episode gap",
			docs:    []*EpisodeDocument{mk(1, "01"), mk(1, "02"), mk(1, "04")},
			wantErr: true,
		},
		{
			name:    "duplicate episode",
			docs:    []*EpisodeDocument{mk(1, "01"), mk(1, "01")},
			wantErr: true,
		},
		{
			name:    "season starting at two",
			docs:    []*EpisodeDocument{mk(2, "01")},
			wantErr: true,
		},
		{
			name:    "season gap",
			docs:    []*EpisodeDocument{mk(1, "01"), mk(3, "01")},
			wantErr: true,
		},
		{
			name: "empty corpus",
			docs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContiguity(tt.docs)
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("ValidateContiguity() error = %v, want *ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateContiguity() unexpected error: %v", err)
			}
		})
	}
}
