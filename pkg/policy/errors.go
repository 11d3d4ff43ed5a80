package policy

import "errors"

var errBadAddress = errors.New("not an IP address")
