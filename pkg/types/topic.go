// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ContentType selects the structural shape of a generated article.
type ContentType string

const (
	ContentTutorial    ContentType = "tutorial"
	ContentGuide       ContentType = "guide"
	ContentWalkthrough ContentType = "walkthrough"
	ContentComparison  ContentType = "comparison"
	ContentDeepDive    ContentType = "deep-dive"
)

// ContentTypes lists the accepted content types in prompt order.
var ContentTypes = []ContentType{
	ContentTutorial,
	ContentGuide,
	ContentWalkthrough,
	ContentComparison,
	ContentDeepDive,
}

// Valid reports whether c is one of the known content types.
func (c ContentType) Valid() bool {
	for _, known := range ContentTypes {
		if c == known {
			return true
		}
	}
	return false
}

// TopicDescriptor describes what to write about before any prose exists.
// It is produced by the idea source and folded into the artifact's
// metadata block; it is never persisted on its own.
type TopicDescriptor struct {
	// Title is the article title. Unique within a run.
	Title string `json:"title" yaml:"title"`

	// Category is drawn from the catalogue's categories but not enforced.
	Category string `json:"category" yaml:"category"`

	// Tags is the ordered tag list written to the metadata block.
	Tags []string `json:"tags" yaml:"tags"`

	// Description is a one-sentence summary. Empty means "use the title".
	Description string `json:"description" yaml:"description"`

	// ContentType selects the authoring guidance.
	ContentType ContentType `json:"contentType" yaml:"content_type"`
}
