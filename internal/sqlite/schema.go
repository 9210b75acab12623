// This file holds the SQLite DDL for the attribute matrix.
package sqlite

// Schema DDL. attributes and entities carry an ordinal so column and row
// order survive a round trip; entity_key is the normalized entity name.
const (
	createAttributes = `CREATE TABLE attributes (
    name TEXT PRIMARY KEY,
    ordinal INTEGER NOT NULL
);`

	createEntities = `CREATE TABLE entities (
    entity_key TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    ordinal INTEGER NOT NULL
);`

	createEntityValues = `CREATE TABLE entity_values (
    entity_key TEXT NOT NULL,
    attribute TEXT NOT NULL,
    value INTEGER NOT NULL CHECK (value IN (0, 1)),
    PRIMARY KEY (entity_key, attribute),
    FOREIGN KEY (entity_key) REFERENCES entities(entity_key) ON DELETE CASCADE,
    FOREIGN KEY (attribute) REFERENCES attributes(name)
);`
)

// Index DDL.
const (
	idxAttributesOrdinal     = `CREATE INDEX idx_attributes_ordinal ON attributes(ordinal);`
	idxEntitiesOrdinal       = `CREATE INDEX idx_entities_ordinal ON entities(ordinal);`
	idxEntityValuesAttribute = `CREATE INDEX idx_entity_values_attribute ON entity_values(attribute);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createAttributes,
	createEntities,
	createEntityValues,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxAttributesOrdinal,
	idxEntitiesOrdinal,
	idxEntityValuesAttribute,
}
