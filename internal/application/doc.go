// Package application provides application initialization and dependency wiring.
// It builds the product catalog, project storage (in memory or SQLite), the
// optimizer, handlers, router and HTTP server, keeping the main package
// focused on CLI parsing and orchestration.
package application
