// Package classify decides which Drive folder a document belongs in.
//
// The classifier submits a bounded prefix of the document text together
// with the candidate folder list to a language model and parses the
// structured reply into a Decision. The model is treated as untrusted: the
// returned folder ID must be a member of the supplied candidate set, and
// any violation is a classification failure.
package classify
