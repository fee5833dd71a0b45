package watch

import "os"

// readFileLimited reads a file in full for sha1 computation. It is its own
// function so tests can see the one place the walk source touches content.
func readFileLimited(path string) ([]byte, error) {
	return os.ReadFile(path)
}
