// CLAUDE:SUMMARY Defines Format and Document types for the conversion pipeline.
package docpipe

// Format identifies a source document type.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatPDF  Format = "pdf"
	FormatDocx Format = "docx"
	FormatHTML Format = "html"
)

// Document is the result of converting a source file to plain text.
type Document struct {
	Path   string `json:"path"`
	Format Format `json:"format"`
	Title  string `json:"title"`
	Text   string `json:"text"`

	// Quality is populated for PDF sources only.
	Quality *ExtractionQuality `json:"quality,omitempty"`
}
