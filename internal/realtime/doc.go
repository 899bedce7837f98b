// Package realtime implements the websocket gateway that fans task events
// out to connected clients.
//
// A connection moves through Connecting, Authenticating, Admitted and Closed.
// Admission verifies the session token carried by the handshake, resolves the
// user and joins the connection to its user room and one room per team.
// Clients join task rooms explicitly. The Registry is the single in-memory
// room table; it is guarded by a sync.RWMutex and fan-out snapshots
// membership under the read lock before sending without it.
//
// Sends are non-blocking. Each connection owns a bounded FIFO queue drained by
// its writer goroutine; when the queue is full the frame is dropped and
// logged. Room membership never affects REST authorization, and an admitted
// connection is not re-authenticated for its lifetime.
package realtime
