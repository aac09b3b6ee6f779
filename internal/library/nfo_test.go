package library

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Themolx/Privateer/internal/model"
)

func TestWriteSidecar_Movie(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "Modern Times (1936).mp4")

	job := &model.Job{
		ID:            "job-1",
		Kind:          model.KindFilm,
		DisplayName:   "Modern Times (1936)",
		Year:          1936,
		SourceLocator: "https://example.org/film/12836",
		Destination:   dest,
	}
	if err := WriteSidecar(job); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Modern Times (1936).nfo"))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if !strings.HasPrefix(string(data), `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`) {
		t.Fatalf("missing xml header: %s", data)
	}

	var doc movieNFO
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse sidecar: %v", err)
	}
	if doc.Title != "Modern Times" || doc.Year != 1936 {
		t.Fatalf("unexpected movie nfo: %+v", doc)
	}
	if doc.Website != "https://example.org/film/12836" {
		t.Fatalf("unexpected website: %q", doc.Website)
	}
}

func TestWriteSidecar_Episode(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "Show - S02E05 - Pilot.mp4")

	job := &model.Job{
		ID:          "job-2",
		Kind:        model.KindEpisode,
		DisplayName: "Show - S02E05 - Pilot",
		Series:      "Show",
		Season:      2,
		Episode:     5,
		Destination: dest,
	}
	if err := WriteSidecar(job); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	data, err := os.ReadFile(SidecarPath(dest))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	var doc episodeNFO
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse sidecar: %v", err)
	}
	if doc.ShowTitle != "Show" || doc.Season != 2 || doc.Episode != 5 || doc.Title != "Pilot" {
		t.Fatalf("unexpected episode nfo: %+v", doc)
	}
}
