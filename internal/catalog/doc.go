// Package catalog holds the static table of standard lumber products the
// optimizer buys from. A Catalog is immutable once built and is safe to share
// between goroutines; lookups match material names case-insensitively.
package catalog
