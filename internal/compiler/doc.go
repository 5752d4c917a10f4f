// Package compiler runs a compilation: it lists the documents of an origin,
// parses them in parallel into a shared registry, renders every parsed document
// once all of them are known, and writes pages and assets below the output
// directory.
//
// A document that fails to parse or render is reported in the Result and the
// run continues with the others. Only cancellation, an unreadable origin or an
// unusable output directory abort a run.
package compiler
