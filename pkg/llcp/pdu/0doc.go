// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pdu implements the LLCP wire format: the two octet PDU header, the
// sequence octet of numbered PDUs, TLV encoded parameters and the payloads of
// SNL, FRMR and DM PDUs.
//
// All codecs operate on byte slices with explicit bounds. Nothing in this
// package holds state or performs I/O.
package pdu
