// Package studyable models the in-world objects properties are applied to.
//
// An Object carries static item metadata (name, grammatical gender and the
// properties it was authored with) and a mutable property set. A Registry
// holds every object that rules may act on and answers proximity queries.
package studyable
