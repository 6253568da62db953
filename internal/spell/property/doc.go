// Package property defines the properties studyable objects can carry and the
// read-only database that describes them.
//
// A property is identified by its Type tag. Each property has two display
// forms, one per grammatical gender, and may be paired with antonyms that can
// never be held by the same object at once. The database is loaded once from a
// YAML asset and only queried afterwards, so it is safe for concurrent use.
package property
