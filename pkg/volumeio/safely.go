package volumeio

import (
	"fmt"

	"github.com/henghuang/nifti"
)

// safelyLoadHeader decodes the header at path. The nifti package panics on
// malformed input, so the panic is turned into ErrNotNIfTI.
func safelyLoadHeader(path string) (h nifti.Nifti1Header, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrNotNIfTI, path, r)
		}
	}()

	h.LoadHeader(path)
	return
}
