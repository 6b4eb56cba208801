// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package scripts holds ready made scripts for common protocols: the FTP
// control channel, SOCKS handshakes and the nanomsg push/pull framing WRP
// messages travel over.
package scripts
