package domain

import (
	"path"
	"strings"
)

// Artifact folders model the lifecycle state of an uploaded document in the
// object store. Keys look like "incoming/<filename>" and move to
// "processed/<filename>" once loaded.
const (
	FolderIncoming  = "incoming"
	FolderProcessed = "processed"
)

// Artifact is one uploaded JSON document stored as an object-store entry.
type Artifact struct {
	Folder  string `json:"folder"`
	Name    string `json:"name"`
	Content []byte `json:"-"`
}

// Key returns the object-store key for the artifact.
func (a *Artifact) Key() string {
	return ArtifactKey(a.Folder, a.Name)
}

// ArtifactKey joins a folder and filename into an object-store key.
func ArtifactKey(folder, name string) string {
	return folder + "/" + name
}

// IncomingKey returns the key of an unprocessed artifact.
func IncomingKey(name string) string {
	return ArtifactKey(FolderIncoming, name)
}

// ProcessedKey returns the key of an archived artifact. The filename is
// preserved across the move.
func ProcessedKey(name string) string {
	return ArtifactKey(FolderProcessed, name)
}

// NameFromKey strips the folder prefix from an object-store key.
func NameFromKey(key string) string {
	if i := strings.IndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// SanitizeFilename reduces an uploaded filename to a safe basename.
// Path separators, parent references and leading dots are stripped so the
// name cannot escape the incoming folder.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(path.Clean("/" + name))
	if name == "/" || name == "." {
		return ""
	}
	return strings.TrimLeft(name, ".")
}

// HasJSONExtension reports whether the filename ends in .json,
// case-insensitively. The upload boundary accepts nothing else.
func HasJSONExtension(name string) bool {
	return strings.EqualFold(path.Ext(name), ".json")
}
