// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Every aggregate (connector, data mapping, sync job, sync run) is stored as a
// row in the entities table plus typed rows in entity_fields. Repositories hydrate
// domain aggregates from those rows; nothing in the domain layer sees a GORM tag.
package models
