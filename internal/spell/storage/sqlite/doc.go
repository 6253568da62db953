// Package sqlite persists player progress and object property sets in SQLite.
//
// Studied items and the current property set of every object the player has
// changed survive restarts. Property sets are written whole: saving replaces
// what was stored, inside one transaction.
package sqlite
