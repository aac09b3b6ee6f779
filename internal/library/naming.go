package library

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Themolx/Privateer/internal/model"
)

// Canonical layout, one directory per title:
//
//	Films/Title (Year)/Title (Year).mp4
//	Series/Show/Season 02/Show - S02E05 - Title.mp4
//	Shorts/Title/Title.mp4
const (
	filmsDir  = "Films"
	seriesDir = "Series"
	shortsDir = "Shorts"
)

var (
	unsafeChars  = regexp.MustCompile(`[<>:"/\\|?*]`)
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// SanitizeFileName strips filesystem-hostile characters and collapses
// whitespace. Diacritics are kept; folding only happens in index keys.
func SanitizeFileName(name string) string {
	name = unsafeChars.ReplaceAllString(name, "")
	name = controlChars.ReplaceAllString(name, "")
	name = multiSpace.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, ". ")
	if runes := []rune(name); len(runes) > 200 {
		name = string(runes[:200])
	}
	return name
}

// EpisodeCode renders the canonical SxxEyy form.
func EpisodeCode(season, episode int) string {
	return fmt.Sprintf("S%02dE%02d", season, episode)
}

// DisplayName builds the human identity of a wanted item. It doubles as the
// resolution query when a source needs replacing.
func DisplayName(item model.WantedItem) string {
	switch item.Kind {
	case model.KindEpisode:
		series := firstNonEmpty(item.Series, item.Name)
		code := EpisodeCode(item.Season, item.Episode)
		if item.Name != "" && item.Series != "" && item.Name != item.Series {
			return fmt.Sprintf("%s - %s - %s", series, code, item.Name)
		}
		return fmt.Sprintf("%s %s", series, code)
	case model.KindFilm:
		if item.Year > 0 {
			return fmt.Sprintf("%s (%d)", item.Name, item.Year)
		}
		return item.Name
	default:
		return item.Name
	}
}

// Destination computes the canonical absolute path for a wanted item under
// root.
func Destination(root string, item model.WantedItem) string {
	switch item.Kind {
	case model.KindEpisode:
		series := SanitizeFileName(firstNonEmpty(item.Series, item.Name))
		season := fmt.Sprintf("Season %02d", item.Season)
		code := EpisodeCode(item.Season, item.Episode)
		var file string
		if item.Name != "" && item.Series != "" && item.Name != item.Series {
			file = fmt.Sprintf("%s - %s - %s.mp4", series, code, SanitizeFileName(item.Name))
		} else {
			file = fmt.Sprintf("%s - %s.mp4", series, code)
		}
		return filepath.Join(root, seriesDir, series, season, file)
	case model.KindShort:
		title := SanitizeFileName(item.Name)
		return filepath.Join(root, shortsDir, title, title+".mp4")
	default:
		base := SanitizeFileName(item.Name)
		if item.Year > 0 {
			base = fmt.Sprintf("%s (%d)", base, item.Year)
		}
		return filepath.Join(root, filmsDir, base, base+".mp4")
	}
}

// QueryKeys returns the lookup strings used against the existence index for
// a job, most specific first. Episodes also try the truncated series+code
// form so a library holding "Show - S01E01 - Pilot" matches a wanted
// "Show S01E01" and the other way round.
func QueryKeys(job *model.Job) []string {
	keys := []string{job.DisplayName}
	if job.Kind == model.KindEpisode && job.Series != "" {
		keys = append(keys, fmt.Sprintf("%s %s", job.Series, EpisodeCode(job.Season, job.Episode)))
	}
	return keys
}

// BareTitle recovers the plain title from a display name, for sidecar
// metadata.
func BareTitle(job *model.Job) string {
	switch job.Kind {
	case model.KindFilm:
		if job.Year > 0 {
			return strings.TrimSuffix(job.DisplayName, fmt.Sprintf(" (%d)", job.Year))
		}
		return job.DisplayName
	case model.KindEpisode:
		parts := strings.Split(job.DisplayName, " - ")
		if len(parts) >= 3 {
			return strings.Join(parts[2:], " - ")
		}
		return job.DisplayName
	default:
		return job.DisplayName
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
