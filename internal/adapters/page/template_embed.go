package page

import _ "embed"

const defaultTemplateName = "index.html.tmpl"

//go:embed templates/index.html.tmpl
var defaultTemplate string

// DefaultTemplate returns the embedded page template source.
func DefaultTemplate() string {
	return defaultTemplate
}
