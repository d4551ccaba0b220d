package tasks

import (
	"testing"

	"github.com/desertthunder/ytmigrate/internal/models"
)

func TestDeriveKey(t *testing.T) {
	t.Run("case and whitespace insensitive", func(t *testing.T) {
		a := DeriveKey(models.Track{Title: "  Bohemian Rhapsody ", Artists: []string{"Queen"}})
		b := DeriveKey(models.Track{Title: "bohemian rhapsody", Artists: []string{"QUEEN"}})
		if a != b {
			t.Errorf("expected equal keys, got %v and %v", a, b)
		}
	})

	t.Run("string form", func(t *testing.T) {
		k := DeriveKey(models.Track{Title: "Under Pressure", Artists: []string{"Queen", "David Bowie"}})
		if got := k.String(); got != "under pressure||queen, david bowie" {
			t.Errorf("unexpected key %q", got)
		}
	})

	t.Run("album is not part of the key", func(t *testing.T) {
		a := DeriveKey(models.Track{Title: "Song", Artists: []string{"A"}, Album: "One"})
		b := DeriveKey(models.Track{Title: "Song", Artists: []string{"A"}, Album: "Two"})
		if a != b {
			t.Error("album should not affect the key")
		}
	})
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name  string
		track models.Track
		want  string
	}{
		{"full", models.Track{Title: "Song", Artists: []string{"A", "B"}, Album: "LP"}, "Song A, B LP"},
		{"no album", models.Track{Title: "Song", Artists: []string{"A"}}, "Song A"},
		{"title only", models.Track{Title: "Song"}, "Song"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildSearchQuery(tt.track); got != tt.want {
				t.Errorf("BuildSearchQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}
