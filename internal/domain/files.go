package domain

// FileEntry is a file or directory inside the browsable data volume.
type FileEntry struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Type     FileType `json:"type"`
	Size     *int64   `json:"size"`
	Modified string   `json:"modified"`
}

// FileListing is the content of a directory.
type FileListing struct {
	Path    string      `json:"path"`
	Entries []FileEntry `json:"entries"`
	Count   int         `json:"count"`
}

// FileContent is the decoded text of a file.
type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int    `json:"size"`
}
