package testing

// WithFiles writes each path->content pair into the client's filesystem,
// creating parent directories as needed.
func WithFiles(client *MockClient, files map[string]string) {
	fs := client.GetFS()
	for p, content := range files {
		_ = fs.WriteFile(p, []byte(content))
	}
}

// WithDirs creates each directory and its parents.
func WithDirs(client *MockClient, dirs []string) {
	fs := client.GetFS()
	for _, d := range dirs {
		_ = fs.MkdirAll(d)
	}
}

// WithMissing takes programs off the host's PATH, so running them exits 127
// and command -v reports them absent.
func WithMissing(client *MockClient, programs ...string) {
	client.Uninstall(programs...)
}
