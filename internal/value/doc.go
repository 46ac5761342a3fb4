// Package value provides the field value types shared by every crudkit layer.
//
// Entities expose their fields as Values, request bodies decode to Values,
// and the store binds and scans Values. Keeping one closed set of types means
// the query compiler and the store never have to guess at Go types.
//
// Value is a sealed interface. Only Null, String, Int, Float, Bool, Array and
// Object implement it. A nil Value means "absent", Null means JSON null.
//
// Encoding is deterministic: object keys are emitted in sorted order and
// strings are NFC normalized, so the same Object always serializes to the
// same bytes (JSON columns and golden files rely on this).
package value
