// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package rf95 carries LLCP frames over LoRa by using a rf95modem. Each frame
// is sent as one radio packet, followed by a CRC-16 trailer. Packets with an
// invalid checksum are dropped.
package rf95
