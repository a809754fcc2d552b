// Package server provides the HTTP API for the backend: the organizer
// upload endpoint, the fetcher agent endpoint and the download endpoint,
// plus health probes and the Prometheus scrape endpoint.
//
// Failures of the orchestrators never surface as protocol-level errors.
// Every outcome is serialized as a 200-level JSON body carrying a status
// field; a non-2xx response from this API indicates an infrastructure
// problem, not a domain failure.
package server
