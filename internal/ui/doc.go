// Package ui renders the data table and its widgets as templ components.
//
// Widgets take props and emit links and forms: every state change is a
// navigation. URL state changes link to the URL the change produces
// (computed with the coordinator's Preview). View state changes post an
// operation to the view endpoint, which redirects back.
//
// Components live in *.templ files; run `templ generate` after editing
// them.
package ui

// PageProps describe the document around a table.
type PageProps struct {
	Title   string
	Heading string

	// Scripts are extra script paths, e.g. a vendored htmx build.
	Scripts []string
}
