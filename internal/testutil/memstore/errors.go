package memstore

import "errors"

var errInjected = errors.New("memstore: injected failure")
