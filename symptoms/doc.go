// Package symptoms turns free-text symptom lists into the binary feature
// vectors the classifiers were trained on, and maps classifier output back
// to diagnosis labels.
//
// An Index is built once from the persisted symptom-to-position mapping and
// is read-only afterwards. Lookups are case- and whitespace-insensitive: the
// lower-cased view is computed at construction, not per request.
package symptoms
