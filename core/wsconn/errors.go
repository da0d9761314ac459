package wsconn

import "errors"

// ErrTextMessage is returned by Read when the peer sends a text message.
var ErrTextMessage = errors.New("websocket: text messages are not supported")
