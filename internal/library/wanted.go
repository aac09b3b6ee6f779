package library

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Themolx/Privateer/internal/model"
)

// LoadWantedList reads an operator wanted list:
//
//	{"items": [{"name": "...", "kind": "film", "locator": "...", ...}]}
//
// Every item needs a name and a locator; a kind, when present, must be one of
// the known kinds. Kind-specific field checks happen in ValidateWantedItem
// once the effective kind is known, because items may omit kind and inherit
// a default at enqueue time.
func LoadWantedList(path string) (*model.WantedList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wanted list: %w", err)
	}

	var list model.WantedList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse wanted list %s: %w", path, err)
	}
	if len(list.Items) == 0 {
		return nil, fmt.Errorf("wanted list %s has no items", path)
	}

	for i, item := range list.Items {
		if strings.TrimSpace(item.Name) == "" && strings.TrimSpace(item.Series) == "" {
			return nil, fmt.Errorf("wanted list item %d: name is required", i)
		}
		if strings.TrimSpace(item.Locator) == "" {
			return nil, fmt.Errorf("wanted list item %d (%s): locator is required", i, item.Name)
		}
		if item.Kind != "" {
			if _, err := model.ParseJobKind(string(item.Kind)); err != nil {
				return nil, fmt.Errorf("wanted list item %d (%s): %w", i, item.Name, err)
			}
		}
	}
	return &list, nil
}

// ValidateWantedItem checks the kind-specific fields of an item whose
// effective kind has been settled.
func ValidateWantedItem(item model.WantedItem, kind model.JobKind) error {
	if kind == model.KindEpisode {
		if strings.TrimSpace(item.Series) == "" {
			return fmt.Errorf("episode %q needs a series", item.Name)
		}
		if item.Season <= 0 || item.Episode <= 0 {
			return fmt.Errorf("episode %q needs positive season and episode numbers", item.Name)
		}
	}
	return nil
}
