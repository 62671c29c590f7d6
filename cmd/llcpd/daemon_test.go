// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtn7/llcp-go/pkg/link"
	"github.com/dtn7/llcp-go/pkg/llcp"
	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
	"github.com/dtn7/llcp-go/pkg/rest"
)

// pipeActivator is a link.Activator only used for its name.
type pipeActivator string

func (pa pipeActivator) Activate() (link.Link, error, bool) { return nil, link.ErrClosed, false }
func (pa pipeActivator) Close() error                       { return nil }
func (pa pipeActivator) String() string                     { return string(pa) }

// pipeLinks activates both ends of an in-memory link.
func pipeLinks(t *testing.T) (*link.FrameLink, *link.FrameLink) {
	t.Helper()

	connA, connB := link.Pipe(16)

	linkB := make(chan *link.FrameLink, 1)
	go func() {
		l, err := link.Activate(connB, "pipe-b", link.DefaultParams())
		assert.NoError(t, err)
		linkB <- l
	}()

	la, err := link.Activate(connA, "pipe-a", link.DefaultParams())
	require.NoError(t, err)
	lb := <-linkB
	require.NotNil(t, lb)

	t.Cleanup(func() { _ = la.Close() })
	return la, lb
}

// peerTransport attaches a fresh Transport to a link.
func peerTransport(t *testing.T, l link.Link) *llcp.Transport {
	t.Helper()

	tr, err := llcp.New(llcp.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, tr.Reset(l))
	t.Cleanup(func() { _ = tr.Shutdown() })
	return tr
}

func await[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		require.FailNow(t, "timeout")
		var zero T
		return zero
	}
}

func testDaemon(t *testing.T) *daemon {
	t.Helper()

	d := newDaemon("test", llcp.DefaultConfig(), []service{
		{name: "urn:nfc:sn:echo", typ: llcp.ConnectionOriented},
		{name: "urn:nfc:sn:echo-dgram", typ: llcp.Connectionless},
	})
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDaemonConnectionOrientedEcho(t *testing.T) {
	d := testDaemon(t)
	la, lb := pipeLinks(t)

	d.linkUp(link.Status{Activator: pipeActivator("mtcp://peer"), Type: link.LinkUp, Link: lb})
	assert.Equal(t, []string{"mtcp:%2F%2Fpeer"}, d.links())

	tr := peerTransport(t, la)

	h, err := tr.Socket(llcp.ConnectionOriented, llcp.SocketOptions{}, nil)
	require.NoError(t, err)

	connected := make(chan error, 1)
	require.NoError(t, tr.ConnectByURI(h, "urn:nfc:sn:echo", func(err error) { connected <- err }))
	require.NoError(t, await(t, connected))

	received := make(chan []byte, 1)
	for _, msg := range []string{"hello", "world"} {
		require.NoError(t, tr.Send(h, []byte(msg), nil))
		require.NoError(t, tr.Recv(h, func(data []byte, err error) {
			assert.NoError(t, err)
			received <- data
		}))
		assert.Equal(t, []byte(msg), await(t, received))
	}
}

func TestDaemonConnectionlessEcho(t *testing.T) {
	d := testDaemon(t)
	la, lb := pipeLinks(t)

	d.linkUp(link.Status{Activator: pipeActivator("peer"), Type: link.LinkUp, Link: lb})
	tr := peerTransport(t, la)

	saps := make(chan []pdu.SAP, 1)
	require.NoError(t, tr.DiscoverServices([]string{"urn:nfc:sn:echo-dgram"}, func(s []pdu.SAP, err error) {
		assert.NoError(t, err)
		saps <- s
	}))
	sap := await(t, saps)[0]
	require.NotZero(t, sap)

	h, err := tr.Socket(llcp.Connectionless, llcp.SocketOptions{}, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Bind(h, ""))

	type datagram struct {
		data []byte
		ssap pdu.SAP
	}
	datagrams := make(chan datagram, 1)
	require.NoError(t, tr.RecvFrom(h, func(data []byte, ssap pdu.SAP, err error) {
		assert.NoError(t, err)
		datagrams <- datagram{data, ssap}
	}))
	require.NoError(t, tr.SendTo(h, sap, []byte("ping"), nil))

	dg := await(t, datagrams)
	assert.Equal(t, []byte("ping"), dg.data)
	assert.Equal(t, sap, dg.ssap)
}

func TestDaemonLinkDown(t *testing.T) {
	d := testDaemon(t)
	_, lb := pipeLinks(t)

	activator := pipeActivator("peer")
	d.linkUp(link.Status{Activator: activator, Type: link.LinkUp, Link: lb})

	tr, ok := d.transport("peer")
	require.True(t, ok)

	d.linkDown(link.Status{Activator: activator, Type: link.LinkDown, Link: lb})

	_, ok = d.transport("peer")
	assert.False(t, ok)
	assert.Empty(t, d.links())

	_, err := tr.Socket(llcp.Connectionless, llcp.SocketOptions{}, nil)
	assert.ErrorIs(t, err, llcp.ErrTransportClosed)
}

func TestDaemonREST(t *testing.T) {
	d := testDaemon(t)
	_, lb := pipeLinks(t)

	d.linkUp(link.Status{Activator: pipeActivator("mtcp://peer"), Type: link.LinkUp, Link: lb})

	router := mux.NewRouter().UseEncodedPath()
	rest.NewServer(router.PathPrefix(restPath).Subrouter(), d.links, d.transport)
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/rest/links/mtcp:%2F%2Fpeer/sockets")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
