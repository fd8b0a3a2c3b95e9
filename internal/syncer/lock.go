package syncer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// AcquireLock takes the run-level mutex guarding a state directory. Two
// runs over the same store would clobber each other's whole-table writes,
// so a second caller fails instead of waiting.
func AcquireLock(path string) (release func(), err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "syncer: creating lock dir")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if os.IsExist(err) {
		return nil, errors.Errorf("syncer: %s exists, another run is in progress", path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "syncer: acquiring lock")
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	return func() { os.Remove(path) }, nil
}
