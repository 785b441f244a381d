// Package council implements the query fan-out core of Gremium. A council
// is a panel of LLM members addressed through the provider registry: one
// conversation is sent to every member concurrently, each invocation settles
// into an answered or absent outcome regardless of provider failures, and an
// optional chairman member synthesizes the panel's replies into one final
// answer. The completeness guarantee is central: a panel query always yields
// exactly one outcome per requested member, even when every member fails.
package council
