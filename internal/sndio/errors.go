package sndio

import "errors"

var (
	// ErrUnknownExtension reports a file extension with no known container.
	ErrUnknownExtension = errors.New("unknown file extension")

	// ErrUnsupportedOutput reports an output container with no writer.
	ErrUnsupportedOutput = errors.New("no writer for output container")

	// ErrInvalidFile reports a file that failed container validation.
	ErrInvalidFile = errors.New("invalid or corrupt audio file")

	// ErrUnsupportedLayout reports a decodable file whose sample layout the
	// reader cannot normalize.
	ErrUnsupportedLayout = errors.New("unsupported sample layout")
)
