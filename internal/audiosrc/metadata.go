package audiosrc

import (
	"os"

	"github.com/dhowden/tag"

	"github.com/paraswtf/fftrack/internal/engine"
)

// ReadEmbeddedMeta reads title/artist tags embedded in the source file at
// path, for prefilling engine.Meta when the caller does not pass
// --title/--artist explicitly. A file with no readable tags, or an
// unsupported container, yields a zero Meta and no error: embedded
// metadata is a convenience, not a requirement.
func ReadEmbeddedMeta(path string) engine.Meta {
	f, err := os.Open(path)
	if err != nil {
		return engine.Meta{}
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return engine.Meta{}
	}
	return engine.Meta{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
	}
}
