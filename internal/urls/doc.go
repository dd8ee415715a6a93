// Package urls keeps every documentation link the CLI prints in one place.
package urls
