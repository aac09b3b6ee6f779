package library

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/Themolx/Privateer/internal/model"
)

func TestDestination(t *testing.T) {
	root := "/srv/media"
	tests := []struct {
		name string
		item model.WantedItem
		want string
	}{
		{
			name: "film with year",
			item: model.WantedItem{Kind: model.KindFilm, Name: "Modern Times", Year: 1936},
			want: filepath.Join(root, "Films", "Modern Times (1936)", "Modern Times (1936).mp4"),
		},
		{
			name: "film without year",
			item: model.WantedItem{Kind: model.KindFilm, Name: "Untitled Sketch"},
			want: filepath.Join(root, "Films", "Untitled Sketch", "Untitled Sketch.mp4"),
		},
		{
			name: "episode with title",
			item: model.WantedItem{Kind: model.KindEpisode, Name: "Pilot", Series: "Show", Season: 2, Episode: 5},
			want: filepath.Join(root, "Series", "Show", "Season 02", "Show - S02E05 - Pilot.mp4"),
		},
		{
			name: "episode without distinct title",
			item: model.WantedItem{Kind: model.KindEpisode, Series: "Show", Season: 1, Episode: 1},
			want: filepath.Join(root, "Series", "Show", "Season 01", "Show - S01E01.mp4"),
		},
		{
			name: "short",
			item: model.WantedItem{Kind: model.KindShort, Name: "Balablok"},
			want: filepath.Join(root, "Shorts", "Balablok", "Balablok.mp4"),
		},
		{
			name: "hostile characters stripped",
			item: model.WantedItem{Kind: model.KindFilm, Name: `What? A/B "Test": <Cut>`, Year: 2020},
			want: filepath.Join(root, "Films", "What AB Test Cut (2020)", "What AB Test Cut (2020).mp4"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Destination(root, tt.item); got != tt.want {
				t.Fatalf("Destination = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"Plain Title":        "Plain Title",
		"  spaced   out  ":   "spaced out",
		"Name trailing... ":  "Name trailing",
		`<>:"/\|?*removed`:   "removed",
		"Amélie":             "Amélie",
		"tab\tand\nnewline?": "tab and newline",
	}
	for in, want := range tests {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}

	long := strings.Repeat("x", 300)
	if got := SanitizeFileName(long); len([]rune(got)) != 200 {
		t.Errorf("expected 200-rune cap, got %d", len([]rune(got)))
	}
}

func TestDisplayNameAndBareTitle(t *testing.T) {
	film := model.WantedItem{Kind: model.KindFilm, Name: "Modern Times", Year: 1936}
	if got := DisplayName(film); got != "Modern Times (1936)" {
		t.Fatalf("film display name = %q", got)
	}

	episode := model.WantedItem{Kind: model.KindEpisode, Name: "Pilot", Series: "Show", Season: 1, Episode: 1}
	if got := DisplayName(episode); got != "Show - S01E01 - Pilot" {
		t.Fatalf("episode display name = %q", got)
	}

	bare := model.WantedItem{Kind: model.KindEpisode, Series: "Show", Season: 3, Episode: 12}
	if got := DisplayName(bare); got != "Show S03E12" {
		t.Fatalf("bare episode display name = %q", got)
	}

	filmJob := &model.Job{Kind: model.KindFilm, DisplayName: "Modern Times (1936)", Year: 1936}
	if got := BareTitle(filmJob); got != "Modern Times" {
		t.Fatalf("film bare title = %q", got)
	}

	epJob := &model.Job{Kind: model.KindEpisode, DisplayName: "Show - S01E01 - Pilot - Part 2", Series: "Show"}
	if got := BareTitle(epJob); got != "Pilot - Part 2" {
		t.Fatalf("episode bare title = %q", got)
	}
}

func TestQueryKeys(t *testing.T) {
	job := &model.Job{
		Kind:        model.KindEpisode,
		DisplayName: "Show - S02E05 - Pilot",
		Series:      "Show",
		Season:      2,
		Episode:     5,
	}
	keys := QueryKeys(job)
	if len(keys) != 2 || keys[0] != "Show - S02E05 - Pilot" || keys[1] != "Show S02E05" {
		t.Fatalf("unexpected episode query keys: %v", keys)
	}

	filmJob := &model.Job{Kind: model.KindFilm, DisplayName: "Modern Times (1936)", Year: 1936}
	keys = QueryKeys(filmJob)
	if len(keys) != 1 || keys[0] != "Modern Times (1936)" {
		t.Fatalf("unexpected film query keys: %v", keys)
	}
}
