package config

import (
	tregoerr "github.com/glaurung-re/glaurung/internal/errors"
)

// Validator validates an Options record and fills in any defaults a caller
// left zero-valued, over the flat Options record rather than a nested
// Config/Project/Index/Performance/Search tree.
type Validator struct{}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates opts in place and fills any zero-valued
// field from Default(). Returns a TriageError (kind Other) on a value that
// cannot be defaulted away, e.g. a negative limit.
func (v *Validator) ValidateAndSetDefaults(opts *Options) *tregoerr.TriageError {
	def := Default()

	if opts.MaxReadBytes == 0 {
		opts.MaxReadBytes = def.MaxReadBytes
	}
	if opts.MaxReadBytes < 0 {
		return tregoerr.New(tregoerr.Other, "config", "max_read_bytes must be positive, got %d", opts.MaxReadBytes)
	}

	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = def.MaxFileSize
	}
	if opts.MaxFileSize < 0 {
		return tregoerr.New(tregoerr.Other, "config", "max_file_size must be positive, got %d", opts.MaxFileSize)
	}
	if opts.MaxReadBytes > opts.MaxFileSize {
		return tregoerr.New(tregoerr.Other, "config", "max_read_bytes (%d) cannot exceed max_file_size (%d)", opts.MaxReadBytes, opts.MaxFileSize)
	}

	if opts.MaxRecursionDepth == 0 {
		opts.MaxRecursionDepth = def.MaxRecursionDepth
	}
	if opts.MaxRecursionDepth < 0 {
		return tregoerr.New(tregoerr.Other, "config", "max_recursion_depth cannot be negative, got %d", opts.MaxRecursionDepth)
	}

	if opts.MaxTimeMS == 0 {
		opts.MaxTimeMS = def.MaxTimeMS
	}
	if opts.MaxTimeMS < 0 {
		return tregoerr.New(tregoerr.Other, "config", "max_time_ms cannot be negative, got %d", opts.MaxTimeMS)
	}

	if opts.StringsSampleCap == 0 {
		opts.StringsSampleCap = def.StringsSampleCap
	}
	if opts.StringsSampleCap < 0 {
		return tregoerr.New(tregoerr.Other, "config", "strings_sample_cap cannot be negative, got %d", opts.StringsSampleCap)
	}

	if opts.EntropyWindowSize == 0 {
		opts.EntropyWindowSize = def.EntropyWindowSize
	}
	if opts.EntropyWindowSize < 0 {
		return tregoerr.New(tregoerr.Other, "config", "entropy_window_size cannot be negative, got %d", opts.EntropyWindowSize)
	}

	if opts.EntropyMaxWindows == 0 {
		opts.EntropyMaxWindows = def.EntropyMaxWindows
	}
	if opts.EntropyMaxWindows < 0 {
		return tregoerr.New(tregoerr.Other, "config", "entropy_max_windows cannot be negative, got %d", opts.EntropyMaxWindows)
	}

	if opts.PrefixCacheSize < 0 {
		return tregoerr.New(tregoerr.Other, "config", "prefix_cache_size cannot be negative, got %d", opts.PrefixCacheSize)
	}

	return nil
}

// ValidateConfig is a convenience function for quick validation.
func ValidateConfig(opts *Options) *tregoerr.TriageError {
	return NewValidator().ValidateAndSetDefaults(opts)
}
