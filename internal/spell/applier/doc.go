// Package applier enforces the property rules when a player casts
// properties onto an object.
//
// Three rules gate every property: two antonyms may never be requested in
// the same batch, the requested name must be the form that agrees with the
// object's grammatical gender, and the player must have studied an item that
// carries the property. A property that passes displaces any antonym the
// object already holds.
//
// Failures are reported through the injected logger and the boolean result;
// they never abort the caller. Properties applied earlier in a batch stay
// applied when a later one fails.
package applier
