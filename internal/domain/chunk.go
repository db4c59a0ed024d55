package domain

// Metadata keys carried by every chunk.
const (
	MetaSource  = "source"
	MetaPage    = "page"
	MetaSection = "section"
)

// DefaultSection is the active section label before any heading has been seen.
const DefaultSection = "Header"

// ChunkMetadata is the fixed metadata record attached to a chunk.
type ChunkMetadata struct {
	Source  string `json:"source"`
	Page    int    `json:"page"`
	Section string `json:"section"`
}

// Map returns the metadata as a scalar mapping keyed by source, page and section.
func (m ChunkMetadata) Map() map[string]any {
	return map[string]any{
		MetaSource:  m.Source,
		MetaPage:    m.Page,
		MetaSection: m.Section,
	}
}

// Chunk is one page worth of tagged, retrievable text.
type Chunk struct {
	ID       string        `json:"id,omitempty"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// StoredChunk is a chunk as held by a store, with the sanitized metadata that was written.
type StoredChunk struct {
	ID       string
	Seq      int64
	Text     string
	Metadata map[string]any
}

// Chunk converts a stored record back into the hand-off shape.
func (s StoredChunk) Chunk() Chunk {
	c := Chunk{ID: s.ID, Text: s.Text}
	if v, ok := s.Metadata[MetaSource].(string); ok {
		c.Metadata.Source = v
	}
	if v, ok := s.Metadata[MetaSection].(string); ok {
		c.Metadata.Section = v
	}
	switch v := s.Metadata[MetaPage].(type) {
	case int64:
		c.Metadata.Page = int(v)
	case float64:
		c.Metadata.Page = int(v)
	}
	return c
}
