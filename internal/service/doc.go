// Package service glues storage, coercion and association hydration into
// per-relation repositories.
//
// A Repository owns one backend, the relation's schema and its association
// resolvers. Writes go through a command that serializes entities back to
// stored column names; reads coerce records through the schema and then
// hydrate the requested associations.
//
// A Catalog builds every Repository declared in configuration, binding each
// association to the repository of its target collection.
//
// Every write publishes an Event on the EventBus, if one is attached.
package service
