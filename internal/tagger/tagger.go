// Package tagger writes catalog metadata into downloaded mp3 files.
package tagger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"
	"spotload/pkg/models"
)

type Tagger struct{}

func New() *Tagger {
	return &Tagger{}
}

// Tag sets title, artist and album on the file at path. Files that are not
// mp3 are left alone; the normalization pass has not converted them yet.
func (t *Tagger) Tag(path string, track models.Track) error {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("failed to tag %s: %w", path, err)
		}
		return fmt.Errorf("failed to read tags of %s: %w", path, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(track.Name)
	tag.SetArtist(track.Artist)
	if track.Album != "" {
		tag.SetAlbum(track.Album)
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags of %s: %w", path, err)
	}
	return nil
}
