// SPDX-FileCopyrightText: 2022 Markus Sommer
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package internal

import "github.com/quic-go/quic-go"

const (
	// LocalError designates errors on this machine, e.g., a failed PAX exchange.
	LocalError quic.ApplicationErrorCode = 2
	// LinkShutdown is sent when the link is deactivated.
	LinkShutdown quic.ApplicationErrorCode = 5
)
