// Package keys builds the namespaced keys used by the table projections.
package keys

import "strings"

const (
	columnPrefix = "col-"
	rowPrefix    = "row-"
	entryPrefix  = "entry-"
)

// Column returns the projection key for a column ID.
func Column(id string) string {
	return columnPrefix + id
}

// ColumnID strips the column namespace from a key. Keys without the
// namespace are returned unchanged.
func ColumnID(key string) string {
	return strings.TrimPrefix(key, columnPrefix)
}

// IsColumn reports whether key is a namespaced column key.
func IsColumn(key string) bool {
	return strings.HasPrefix(key, columnPrefix) && len(key) > len(columnPrefix)
}

// Row returns the namespaced key for a row ID.
func Row(id string) string {
	return rowPrefix + id
}

// Entry returns the namespaced key for an entry ID.
func Entry(id string) string {
	return entryPrefix + id
}

// Reference returns the reference name from a reference path such as
// "Sales.Entry_Row/Sales.Row". Empty paths stay empty.
func Reference(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
