// Package mcp exposes the dispatcher's operation catalogue as Model Context
// Protocol tools.
//
// Each tool validates nothing itself: argument checking, API sequencing, and
// error classification all live in the dispatch package. Tool handlers only
// translate between the protocol shapes and dispatcher calls, rendering
// failures as error results tagged with their kind so the calling agent can
// react without parsing prose.
//
// The server runs over stdio for local agent hosts or over streamable HTTP for
// remote ones.
package mcp
