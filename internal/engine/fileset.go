// SPDX-License-Identifier: MPL-2.0

package engine

// fileSet is an insertion-ordered path→content map. The merged archive's
// entries are written in this order, so a re-merge of unchanged inputs
// produces an identical archive.
type fileSet struct {
	paths    []string
	contents map[string][]byte
}

func newFileSet() *fileSet {
	return &fileSet{contents: make(map[string][]byte)}
}

// put stores data under path, keeping the path's original position when
// it is already present (last write wins on content, first write wins on
// order).
func (fs *fileSet) put(path string, data []byte) {
	if _, ok := fs.contents[path]; !ok {
		fs.paths = append(fs.paths, path)
	}
	fs.contents[path] = data
}

func (fs *fileSet) has(path string) bool {
	_, ok := fs.contents[path]
	return ok
}

func (fs *fileSet) len() int { return len(fs.paths) }
