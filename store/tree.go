package store

// Cell is the content of one (row, column) slot.
type Cell struct {
	EntryID    string
	Title      string
	TitleEmpty bool
	ClassName  string
}

// TableRow is one row of the projection.
type TableRow struct {
	Key        string
	ID         string
	Title      string
	TitleEmpty bool
	ClassName  string
	SortKey    any

	// Cells holds one slot per known column, keyed by column key. A nil
	// cell marks a column without an entry for this row.
	Cells map[string]*Cell

	// Children holds the nested rows. It is non-nil but empty for a row
	// that can be expanded but has no loaded children.
	Children []*TableRow

	// Expandable reports whether the row declared a child list.
	Expandable bool

	// References lists child IDs to load on expansion.
	References []string

	// HasChildren is the sourced has-children flag, nil when not sourced.
	HasChildren *bool

	// Parent is the parent row key, "" at top level.
	Parent string
}

// TableColumn describes one column of the projection.
type TableColumn struct {
	Key        string
	ID         string
	Title      string
	TitleEmpty bool
	SortKey    any
	ClassName  string
}

// BuildTree nests rows under the row whose key equals their Parent and
// returns the roots in input order. A row whose parent is not in rows, or
// that sits on a parent cycle, is a root. Children keep the relative order
// of rows.
func BuildTree(rows []*TableRow) []*TableRow {
	byKey := make(map[string]*TableRow, len(rows))
	for _, r := range rows {
		byKey[r.Key] = r
	}
	cyclic := parentCycles(rows, byKey)

	var roots []*TableRow
	for _, r := range rows {
		if r.Parent != "" && !cyclic[r.Key] {
			if parent, ok := byKey[r.Parent]; ok {
				parent.Children = append(parent.Children, r)
				continue
			}
		}
		roots = append(roots, r)
	}
	return roots
}

// parentCycles returns the keys of rows whose parent chain leads back to
// themselves.
func parentCycles(rows []*TableRow, byKey map[string]*TableRow) map[string]bool {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(rows))
	cyclic := make(map[string]bool)

	for _, start := range rows {
		var path []string
		key := start.Key
		for {
			if state[key] == done {
				break
			}
			if state[key] == visiting {
				// The path from key's first visit onwards is a cycle.
				for i := len(path) - 1; i >= 0; i-- {
					cyclic[path[i]] = true
					if path[i] == key {
						break
					}
				}
				break
			}
			state[key] = visiting
			path = append(path, key)
			r := byKey[key]
			if r.Parent == "" {
				break
			}
			if _, ok := byKey[r.Parent]; !ok {
				break
			}
			key = r.Parent
		}
		for _, k := range path {
			state[k] = done
		}
	}
	return cyclic
}
