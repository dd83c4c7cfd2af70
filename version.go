package resampler

// Version is the release version, stamped into output metadata and
// reported by the CLI.
const Version = "1.0.0"
