package session

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leeforge/shrink/media/processor"
	"github.com/leeforge/shrink/utils"
)

const resizedSuffix = "_resized"

// SuggestSaveName proposes an output path next to the source:
// photo.png becomes photo_resized.jpg. JPEG is the default extension
// because it is the format chosen when the name carries none.
func SuggestSaveName(src *processor.SourceImage) string {
	if src == nil || src.Path == "" {
		return "resized" + processor.FormatJPEG.Extension()
	}
	base := filepath.Base(src.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "image"
	}
	return filepath.Join(filepath.Dir(src.Path), stem+resizedSuffix+processor.FormatJPEG.Extension())
}

// Describe formats the file-info line shown under the editor,
// e.g. "Size: 1.2 MiB | Mode: RGB | 4000×3000".
func Describe(src *processor.SourceImage) string {
	if src == nil || src.Image == nil {
		return ""
	}
	return fmt.Sprintf("Size: %s | Mode: %s | %d×%d",
		utils.HumanSize(src.Size), src.Mode, src.Width(), src.Height())
}

// SuggestSaveName proposes an output path for the loaded source.
func (s *Session) SuggestSaveName() string {
	return SuggestSaveName(s.Source())
}

// Describe returns the file-info line for the loaded source, or "" when empty.
func (s *Session) Describe() string {
	return Describe(s.Source())
}
