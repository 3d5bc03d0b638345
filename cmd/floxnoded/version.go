package main

import flags "github.com/jessevdk/go-flags"

const version = "0.1.0"

// isHelpRequest reports whether err is the sentinel LoadConfig returns
// when the user passed --help: not a real failure, just a reason to
// print usage and exit zero.
func isHelpRequest(err error) bool {
	flagsErr, ok := err.(*flags.Error)
	return ok && flagsErr.Type == flags.ErrHelp
}
