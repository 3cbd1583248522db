package stream

import "errors"

var (
	ErrMalformedRange     = errors.New("range header is malformed")
	ErrUnsatisfiableRange = errors.New("range not satisfiable")
	ErrClientGone         = errors.New("client disconnected")
	ErrNothingDelivered   = errors.New("upstream delivered no data")
)
