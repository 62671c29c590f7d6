// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mtcp carries LLCP frames over TCP.
//
// Each frame is prefixed by a CBOR byte string header, as the Minimal TCP
// Convergence-Layer Protocol does for bundles. Zero-length byte strings are
// keepalives and will be skipped by the reader.
package mtcp
