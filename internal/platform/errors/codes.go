// Package errors provides structured error handling with i18n support.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Property rule errors
	CodePropertyUnknown         Code = "PROPERTY_UNKNOWN"
	CodePropertyGenderMismatch  Code = "PROPERTY_GENDER_MISMATCH"
	CodePropertyNotStudied      Code = "PROPERTY_NOT_STUDIED"
	CodePropertyAntonymConflict Code = "PROPERTY_ANTONYM_CONFLICT"

	// Object errors
	CodeObjectMissing  Code = "OBJECT_MISSING"
	CodeObjectNotFound Code = "OBJECT_NOT_FOUND"

	// Asset errors
	CodeCatalogInvalid Code = "CATALOG_INVALID"
	CodeSceneInvalid   Code = "SCENE_INVALID"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// Grammar keys share the errors namespace so gender words are localized with
// the messages that embed them.
const (
	KeyGenderMasculine = "GRAMMAR_GENDER_MASCULINE"
	KeyGenderFeminine  = "GRAMMAR_GENDER_FEMININE"
)
