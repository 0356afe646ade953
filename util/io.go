package util

// ChainCloser returns a function that calls all the close functions in order and returns the first error.
//
// The order of the functions matters when one wraps the other, e.g. a zip.Writer must be closed before the os.File it
// writes to.
func ChainCloser(fn1 func() error, fn2 func() error, fns ...func() error) func() error {
	return func() error {
		err, err2 := fn1(), fn2()

		if err2 != nil && err == nil {
			err = err2
		}

		for _, fn := range fns {
			if err2 = fn(); err2 != nil && err == nil {
				err = err2
			}
		}

		return err
	}
}
