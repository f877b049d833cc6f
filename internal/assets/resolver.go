package assets

import "strings"

// Resolve looks up a request path in store. A single leading slash is
// stripped; the remainder must match a key exactly.
func Resolve(store *Store, path string) (Entry, bool) {
	if store == nil {
		return Entry{}, false
	}
	return store.Get(strings.TrimPrefix(path, "/"))
}
