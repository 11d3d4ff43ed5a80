package descriptor

import "errors"

var errNoCapabilities = errors.New("no capability document to generate from")
