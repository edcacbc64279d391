package paths

import (
	"strings"

	"golang.org/x/text/cases"
)

// Folder is a normalized folder path. The text keeps the caller's casing;
// comparisons and map keys use the case-folded form.
type Folder struct {
	text string
	key  string
}

// File is a file identity: a folder plus a name without separators.
type File struct {
	folder Folder
	name   string
}

// Fold returns the case-insensitive comparison form of s.
func Fold(s string) string {
	return cases.Fold().String(s)
}

func isSep(r byte) bool {
	return r == '/' || r == '\\'
}

// isDriveRoot reports whether s is "C:\" or "C:/".
func isDriveRoot(s string) bool {
	return len(s) == 3 && s[1] == ':' && isSep(s[2]) && isLetter(s[0])
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// NewFolder normalizes text into a Folder. Trailing separators are removed
// unless the folder is a bare root ("/" or "C:\").
func NewFolder(text string) Folder {
	text = strings.TrimSpace(text)
	if len(text) == 2 && text[1] == ':' && isLetter(text[0]) {
		text += "\\"
	}
	for len(text) > 1 && isSep(text[len(text)-1]) && !isDriveRoot(text) {
		text = text[:len(text)-1]
	}
	return Folder{text: text, key: folderKey(text)}
}

func folderKey(text string) string {
	return strings.ReplaceAll(Fold(text), "\\", "/")
}

// Text returns the folder as entered (normalized).
func (f Folder) Text() string { return f.text }

// Key returns the case-folded, separator-normalized form used for
// equality, ordering and map keys.
func (f Folder) Key() string { return f.key }

func (f Folder) String() string { return f.text }

// IsEmpty reports whether the folder has no text.
func (f Folder) IsEmpty() bool { return f.text == "" }

// IsRoot reports whether the folder is "/" or a drive root.
func (f Folder) IsRoot() bool {
	return f.text == "/" || f.text == "\\" || isDriveRoot(f.text)
}

// Equal compares folders case-insensitively.
func (f Folder) Equal(other Folder) bool { return f.key == other.key }

// Compare orders folders case-insensitively.
func (f Folder) Compare(other Folder) int { return strings.Compare(f.key, other.key) }

// Separator returns the separator style used by the folder text.
func (f Folder) Separator() string {
	if strings.ContainsRune(f.text, '\\') && !strings.ContainsRune(f.text, '/') {
		return "\\"
	}
	return "/"
}

// Combine returns the child folder called name.
func (f Folder) Combine(name string) Folder {
	if f.IsEmpty() {
		return NewFolder(name)
	}
	if f.IsRoot() {
		return NewFolder(f.text + name)
	}
	return NewFolder(f.text + f.Separator() + name)
}

// Name returns the last path component.
func (f Folder) Name() string {
	if f.IsRoot() {
		return f.text
	}
	i := strings.LastIndexAny(f.text, "/\\")
	return f.text[i+1:]
}

// Parent returns the containing folder, or an empty folder for roots.
func (f Folder) Parent() Folder {
	if f.IsRoot() || f.IsEmpty() {
		return Folder{}
	}
	i := strings.LastIndexAny(f.text, "/\\")
	switch {
	case i < 0:
		return Folder{}
	case i == 0:
		return NewFolder(f.text[:1])
	case i == 2 && f.text[1] == ':':
		return NewFolder(f.text[:3])
	}
	return NewFolder(f.text[:i])
}

// Contains reports whether other is f itself or, when recursive is set,
// any folder below f.
func (f Folder) Contains(other Folder, recursive bool) bool {
	if f.key == other.key {
		return true
	}
	if !recursive {
		return false
	}
	prefix := f.key
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(other.key, prefix)
}

// SubtreePrefix returns the key prefix shared by all descendants of f.
func (f Folder) SubtreePrefix() string {
	if strings.HasSuffix(f.key, "/") {
		return f.key
	}
	return f.key + "/"
}

// NewFile builds a file identity. A name containing a separator is a
// programming error.
func NewFile(folder Folder, name string) File {
	if strings.ContainsAny(name, "/\\") {
		panic("paths: file name contains a separator: " + name)
	}
	return File{folder: folder, name: name}
}

// ParseFile splits text on its last separator.
func ParseFile(text string) File {
	text = strings.TrimSpace(text)
	i := strings.LastIndexAny(text, "/\\")
	if i < 0 {
		return File{name: text}
	}
	dir := text[:i]
	if dir == "" || (len(dir) == 2 && dir[1] == ':') {
		dir = text[:i+1]
	}
	return File{folder: NewFolder(dir), name: text[i+1:]}
}

// Folder returns the containing folder.
func (f File) Folder() Folder { return f.folder }

// Name returns the file name.
func (f File) Name() string { return f.name }

// IsEmpty reports whether the file has no name.
func (f File) IsEmpty() bool { return f.name == "" }

// Text returns the full path.
func (f File) Text() string {
	if f.folder.IsEmpty() {
		return f.name
	}
	if f.folder.IsRoot() {
		return f.folder.text + f.name
	}
	return f.folder.text + f.folder.Separator() + f.name
}

func (f File) String() string { return f.Text() }

// Key returns the case-folded identity of the file.
func (f File) Key() string {
	k := f.folder.key
	if !strings.HasSuffix(k, "/") {
		k += "/"
	}
	return k + Fold(f.name)
}

// Ext returns the lower-case extension without its leading dot.
func (f File) Ext() string {
	return Ext(f.name)
}

// Ext returns the lower-case extension of name without its leading dot.
func Ext(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// Equal compares files case-insensitively.
func (f File) Equal(other File) bool {
	return f.folder.Equal(other.folder) && Fold(f.name) == Fold(other.name)
}

// Compare orders files by folder, then name, case-insensitively.
func (f File) Compare(other File) int {
	if c := f.folder.Compare(other.folder); c != 0 {
		return c
	}
	return strings.Compare(Fold(f.name), Fold(other.name))
}

// CompareNames orders two names case-insensitively.
func CompareNames(a, b string) int {
	return strings.Compare(Fold(a), Fold(b))
}
