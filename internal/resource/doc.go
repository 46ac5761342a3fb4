// Package resource turns a record type into a CRUD surface.
//
// An Engine[T] is built from a Schema[T], which tells the engine how to
// construct an entity, read and write its fields by name, and which field
// is the resource key. Options[T] add the searchable, filterable and
// distinctable allow-lists and five hook stages:
//
//	pre-save    before insert/update, inside the write transaction
//	post-save   after insert/update, inside the same transaction
//	after-load  after every read, with the single-entity contract
//	pre-delete  before delete, inside the transaction
//	post-delete after delete, inside the same transaction
//
// Writes run through Backend.Transact, so a failing hook leaves no trace.
// Update and Delete load the entity through the transactional handle.
//
// Runtime-defined resources use Definition and DocumentSchema, with
// value.Object as the entity type. Service erases the entity type for
// transports.
package resource
