package library

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Themolx/Privateer/internal/model"
)

const nfoHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

type movieNFO struct {
	XMLName       xml.Name `xml:"movie"`
	Title         string   `xml:"title"`
	OriginalTitle string   `xml:"originaltitle"`
	Year          int      `xml:"year,omitempty"`
	Website       string   `xml:"website,omitempty"`
}

type episodeNFO struct {
	XMLName   xml.Name `xml:"episodedetails"`
	Title     string   `xml:"title"`
	ShowTitle string   `xml:"showtitle"`
	Season    int      `xml:"season"`
	Episode   int      `xml:"episode"`
	Website   string   `xml:"website,omitempty"`
}

// SidecarPath returns the NFO path next to an artifact.
func SidecarPath(destination string) string {
	return strings.TrimSuffix(destination, filepath.Ext(destination)) + ".nfo"
}

// WriteSidecar writes a Kodi/Jellyfin metadata sidecar next to the completed
// artifact. Films and shorts get a <movie> document, episodes an
// <episodedetails> one.
func WriteSidecar(job *model.Job) error {
	var doc any
	switch job.Kind {
	case model.KindEpisode:
		doc = episodeNFO{
			Title:     BareTitle(job),
			ShowTitle: job.Series,
			Season:    job.Season,
			Episode:   job.Episode,
			Website:   job.SourceLocator,
		}
	default:
		title := BareTitle(job)
		doc = movieNFO{
			Title:         title,
			OriginalTitle: title,
			Year:          job.Year,
			Website:       job.SourceLocator,
		}
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal nfo for %s: %w", job.ID, err)
	}
	payload := append([]byte(nfoHeader), data...)
	payload = append(payload, '\n')

	path := SidecarPath(job.Destination)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write nfo %s: %w", path, err)
	}
	return nil
}
