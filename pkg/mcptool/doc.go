// Package mcptool exposes the council over the Model Context Protocol.
//
// It serves a single tool, council_query, that runs one stateless council
// round: the question is fanned out to the panel, every member's answer
// (or absence) is reported, and an optional chairman synthesis closes the
// result. The server mounts as a streamable HTTP handler, typically at
// /mcp alongside the REST API.
package mcptool
