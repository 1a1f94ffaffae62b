package abc

import "os"

// withTempFile runs fn with the path of a fresh temporary file and
// removes the file on every exit path. A removal failure is surfaced
// only when fn itself succeeded, so cleanup never masks the original
// failure.
func withTempFile(pattern string, fn func(path string) error) (err error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return err
	}
	path := f.Name()
	if cerr := f.Close(); cerr != nil {
		os.Remove(path)
		return cerr
	}
	defer func() {
		if rerr := os.Remove(path); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn(path)
}
