// Package services implements the SoundCloud API v2 client used by the archive.
//
// # Routes
//
// Every endpoint is declared once as a [Route] (verb, path template, default
// query values) or, when the response has a known shape, as an [Endpoint] bound
// to a response type. All calls go through [Client.Do]:
//
//   - arguments whose names match {placeholders} in the path are substituted
//     into it, everything else becomes a query parameter
//   - query values merge left to right: client defaults (client_id, app_version,
//     app_locale), route defaults, caller values
//   - request bodies are validated and JSON encoded before anything is sent
//   - caller headers win; the OAuth token, user agent and datadome id fill gaps
//
// # Error Handling
//
// Results follow two failure classes:
//   - soft: the body is not JSON. The failure is logged and the call returns (nil, nil)
//   - hard: transport errors and non-2xx statuses ([shared.ErrAPIRequest]),
//     responses that do not match the declared type ([shared.ErrSchemaValidation]),
//     unsatisfied path placeholders ([shared.ErrMissingPathParam], before any request)
//
// Nothing is retried or cached.
//
// # Pagination
//
// Paginated endpoints return a [Collection] whose next_href embeds an opaque
// offset cursor; [NextOffset] extracts it for the following call.
package services
