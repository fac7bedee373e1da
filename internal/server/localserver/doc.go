// Package localserver binds the Unix domain socket on which local clients
// reach the RESP server.
//
// Listen takes care of the socket file: a stale socket left by a crashed
// process is removed, a socket still served by another process is refused
// and the file mode is applied once bound. Closing the listener unlinks the
// socket.
package localserver
