package models

// PreviewMode says how a document preview should be displayed.
type PreviewMode string

const (
	PreviewHTML PreviewMode = "html"
	PreviewURL  PreviewMode = "url"
)

// PreviewResult is a rendered document preview: either a self-contained
// escaped HTML fragment, or a URL (optionally with an office-viewer embed
// URL for word-processor and presentation formats).
type PreviewResult struct {
	Mode           PreviewMode `json:"mode"`
	HTML           string      `json:"html,omitempty"`
	URL            string      `json:"url,omitempty"`
	OfficeEmbedURL string      `json:"office_embed_url,omitempty"`
	Title          string      `json:"title"`
}
