package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/petitions/internal/petition"
	"github.com/roach88/petitions/internal/tiers"
	"github.com/roach88/petitions/internal/validate"
)

// loadDraft reads a petition draft file:
//
//	title: Save the kākāpō
//	description: Fund a breeding season.
//	category: 1
//	image: kakapo.jpg
//	tiers:
//	  - { id: 4, title: Supporter, description: Thanks, cost: 5 }
//	  - { title: Patron, description: A postcard, cost: 50 }
//
// A relative image path is resolved against the draft's directory.
func loadDraft(path string) (validate.PetitionDraft, error) {
	var draft validate.PetitionDraft
	data, err := os.ReadFile(path)
	if err != nil {
		return draft, fmt.Errorf("read draft: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&draft); err != nil && !errors.Is(err, io.EOF) {
		return draft, fmt.Errorf("parse draft %s: %w", path, err)
	}
	if draft.Image != "" && !filepath.IsAbs(draft.Image) {
		draft.Image = filepath.Join(filepath.Dir(path), draft.Image)
	}
	return draft, nil
}

// draftImage returns the image to upload: override when set, else the
// draft's own image.
func draftImage(draft validate.PetitionDraft, override string) ([]byte, error) {
	if override != "" {
		return readImage(override)
	}
	return readImage(draft.Image)
}

// parseTier reads a tier flag written as a YAML flow mapping, such as
// '{title: Gold, description: A signed print, cost: 50}'.
func parseTier(s string) (petition.SupportTier, error) {
	var t petition.SupportTier
	dec := yaml.NewDecoder(strings.NewReader(s))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return t, fmt.Errorf("parse tier %q: %w", s, err)
	}
	return t, nil
}

// tierChanges assembles the edit command's tier flags.
func tierChanges(add, set []string, remove []int) (tiers.Changes, error) {
	c := tiers.Changes{Remove: remove}
	for _, s := range add {
		t, err := parseTier(s)
		if err != nil {
			return c, err
		}
		c.Add = append(c.Add, t)
	}
	for _, s := range set {
		t, err := parseTier(s)
		if err != nil {
			return c, err
		}
		if t.ID == 0 {
			return c, fmt.Errorf("--set-tier %q: id of the tier to change is required", s)
		}
		c.Set = append(c.Set, t)
	}
	return c, nil
}
