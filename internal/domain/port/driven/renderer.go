package driven

// TemplateRenderer defines the driven port for turning a named preview
// template's asset map (asset name to inline content or absolute URL) into
// a self-contained HTML page.
type TemplateRenderer interface {
	Render(templateName string, assets map[string]string) (string, error)
}
