// Package agent runs natural-language requests through a model-driven
// tool-calling loop over a fixed capability set: downloading Drive files
// by name and emailing downloaded files via Gmail. Runs produce a
// structured Outcome so callers never parse reply prose.
package agent
