// Package connector defines the connector registry domain: static vendor
// descriptors (auth type, required configuration fields, capabilities) and the
// Connector aggregate representing one configured integration endpoint.
//
// Concrete vendor API clients are adapters behind the sync.Connector port and
// are not part of this package.
package connector
