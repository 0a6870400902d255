// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keypin

import "fmt"

// Role names the identity being verified.
type Role int

const (
	// RoleServer verifies a server's identity; the local side is the client.
	RoleServer Role = iota + 1

	// RoleClient verifies a client's identity; the local side is the server.
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleServer:
		return "server"
	case RoleClient:
		return "client"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}
