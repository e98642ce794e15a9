package database

import "go.mongodb.org/mongo-driver/bson/primitive"

// Document is satisfied by every type persisted through an AbstractRepository.
type Document interface {
	GetID() primitive.ObjectID
}

// documentPtr lets the repository assign identifiers on *T while handing out T values.
type documentPtr[T any] interface {
	*T
	Document
	SetID(id primitive.ObjectID)
}

// AbstractDocument carries the identifier shared by all stored documents.
// Embed it with `bson:",inline"`.
type AbstractDocument struct {
	ID primitive.ObjectID `bson:"_id" json:"_id"`
}

func (d AbstractDocument) GetID() primitive.ObjectID { return d.ID }

func (d *AbstractDocument) SetID(id primitive.ObjectID) { d.ID = id }

// FilterQuery selects documents: field -> value, or field -> operator document.
type FilterQuery map[string]any

// UpdateQuery describes the mutation applied to one document. Keys without a
// leading '$' are applied as $set.
type UpdateQuery map[string]any
