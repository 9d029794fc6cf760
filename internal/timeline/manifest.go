package timeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// ManifestEntry records one narrated subtitle in the output manifest.
type ManifestEntry struct {
	Index        int    `json:"index"`
	StartMS      int64  `json:"start_ms"`
	EndMS        int64  `json:"end_ms"`
	OriginalText string `json:"original_text"`
	TaggedText   string `json:"tagged_text"`
}

// Manifest is the JSON document emitted next to the assembled track.
type Manifest struct {
	Source    string          `json:"source"`
	Subtitles []ManifestEntry `json:"subtitles"`
}

// BuildManifest derives the manifest from final placements.
func BuildManifest(source string, placements []Placement) Manifest {
	manifest := Manifest{
		Source:    source,
		Subtitles: make([]ManifestEntry, 0, len(placements)),
	}
	for _, placement := range placements {
		manifest.Subtitles = append(manifest.Subtitles, ManifestEntry{
			Index:        placement.Index,
			StartMS:      placement.PlacedStartMS,
			EndMS:        placement.PlacedEndMS,
			OriginalText: placement.OriginalText,
			TaggedText:   placement.Text,
		})
	}
	return manifest
}

// WriteFile serializes the manifest as indented JSON.
func (m Manifest) WriteFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
