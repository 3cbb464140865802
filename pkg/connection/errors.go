package connection

import "errors"

// ErrJoinFailed reports that the user:join handshake could not be sent on a
// freshly opened connection. The open counts as failed.
var ErrJoinFailed = errors.New("connection: user join failed")
