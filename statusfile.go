package procdog

import (
	"errors"
	"io/fs"
	"os"

	"github.com/google/renameio/v2"
)

// The status record mirrors the monitor's current response line into
// <dir>/<id>.status so state changes can be observed without a socket
// round trip. It is advisory: the socket exchange remains the source of
// truth, and the record is removed together with the socket at teardown.

// writeStatusFile atomically replaces the identifier's status record.
func writeStatusFile(dir, id string, st Status) error {
	return renameio.WriteFile(StatusFilePath(dir, id), []byte(st.Encode()+"\n"), FileMode)
}

// ReadStatusFile reads and decodes the identifier's status record. An
// absent record means no monitor holds the identifier, which reads as
// stopped, mirroring how an unreachable socket reads as stopped.
func ReadStatusFile(dir, id string) (Status, error) {
	if err := ValidateIdentifier(id); err != nil {
		return Status{}, err
	}
	data, err := os.ReadFile(StatusFilePath(dir, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Status{State: StateStopped}, nil
		}
		return Status{}, &OpError{Op: OpWatch, Path: StatusFilePath(dir, id), Err: err}
	}
	st, err := ParseStatus(string(data))
	if err != nil {
		return Status{}, &OpError{Op: OpWatch, Path: StatusFilePath(dir, id), Err: err}
	}
	return st, nil
}

// removeStatusFile is best-effort teardown, like removeEndpoint.
func removeStatusFile(dir, id string) {
	_ = os.Remove(StatusFilePath(dir, id))
}
