// Package readme renders extension READMEs for display in the marketplace
// panel: markdown is compiled with strikethrough support and a heading-level
// offset, then sanitized down to a safe tag set plus headings and images.
package readme
