// Package keypath parses dotted key paths and resolves them against loaded
// configuration documents.
//
// A path addresses one location in a document tree: `network.port`,
// `servers[0].host`. A single wildcard segment (`servers[*].port`,
// `services.*.replicas`) fans out over every element of a sequence or every
// key of a mapping at that position. Resolution never fails on missing
// segments; it returns an empty result and leaves the interpretation of
// "missing" to the evaluator.
package keypath
