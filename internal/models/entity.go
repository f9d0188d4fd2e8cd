package models

// Entity is implemented by every record kept in a portfolio collection.
// Ids are assigned by the store at insert time and never change afterwards.
type Entity interface {
	EntityID() int64
	SetEntityID(id int64)
}

// Ptr constrains a type parameter to a pointer to an entity value, so generic
// code can work with values (E) and still reach the id accessors through *E.
type Ptr[E any] interface {
	*E
	Entity
}
