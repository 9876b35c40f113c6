package discovery

import "errors"

var (
	ErrDial           = errors.New("drone dial failed")
	ErrConnect        = errors.New("drone connect failed")
	ErrSetup          = errors.New("drone setup failed")
	ErrConnectTimeout = errors.New("drone connect timed out")
)
