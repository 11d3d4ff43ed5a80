package ipputil

import "errors"

var errBadScheme = errors.New("unsupported uri scheme")
