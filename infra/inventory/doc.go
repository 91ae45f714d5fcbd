// Package inventory provides the SQL backed pin-slot stores. Both backends
// register themselves with core/inventory under the names "sqlite" and
// "postgres" when the package is imported.
package inventory
