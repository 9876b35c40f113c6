package bluetooth

import "errors"

var (
	ErrUnknownPeripheral     = errors.New("peripheral has not been seen by this radio")
	ErrNotConnected          = errors.New("link is not connected")
	ErrUnknownCharacteristic = errors.New("characteristic not found on peripheral")
)
