package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcbrumagin/yamf-sub000/internal/wire"
)

func execCommand(t *testing.T, registryURL string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append([]string{"--registry", registryURL}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestCallCommandSendsServiceCallWithPayload(t *testing.T) {
	var gotName, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, string(wire.CmdServiceCall), req.Header.Get(wire.HeaderCommand))
		gotName = req.Header.Get(wire.HeaderServiceName)
		buf := make([]byte, 64)
		n, _ := req.Body.Read(buf)
		gotBody = string(buf[:n])
		_, _ = w.Write([]byte(`{"sum":3}`))
	}))
	defer server.Close()

	_, err := execCommand(t, server.URL, "call", "add", `{"a":1,"b":2}`)
	require.NoError(t, err)
	assert.Equal(t, "add", gotName)
	assert.Equal(t, `{"a":1,"b":2}`, gotBody)
}

func TestCallCommandPropagatesToken(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotToken = req.Header.Get(wire.HeaderRegistryToken)
		_, _ = w.Write([]byte(`"ok"`))
	}))
	defer server.Close()

	root := newRootCmd()
	root.SetArgs([]string{"--registry", server.URL, "--token", "secret", "call", "add"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "secret", gotToken)
}

func TestCallCommandSurfacesErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such service"))
	}))
	defer server.Close()

	_, err := execCommand(t, server.URL, "call", "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestPublishCommandSendsChannelAndMessage(t *testing.T) {
	var gotChannel, gotCmd string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotChannel = req.Header.Get(wire.HeaderPubsubChannel)
		gotCmd = req.Header.Get(wire.HeaderCommand)
		_, _ = w.Write([]byte(`{"results":[],"errors":[]}`))
	}))
	defer server.Close()

	_, err := execCommand(t, server.URL, "publish", "events", `{"x":1}`)
	require.NoError(t, err)
	assert.Equal(t, "events", gotChannel)
	assert.Equal(t, string(wire.CmdPubsubPublish), gotCmd)
}

func TestLookupCommandDefaultsToAllServices(t *testing.T) {
	var gotName string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotName = req.Header.Get(wire.HeaderServiceName)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := execCommand(t, server.URL, "lookup")
	require.NoError(t, err)
	assert.Equal(t, wire.LookupAll, gotName)
}

func TestLookupCommandResolvesSingleService(t *testing.T) {
	var gotName string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotName = req.Header.Get(wire.HeaderServiceName)
		_, _ = w.Write([]byte(`["http://localhost:1"]`))
	}))
	defer server.Close()

	_, err := execCommand(t, server.URL, "lookup", "add")
	require.NoError(t, err)
	assert.Equal(t, "add", gotName)
}

func TestRootCommandRegistersAllSubcommands(t *testing.T) {
	root := newRootCmd()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["call"])
	assert.True(t, names["publish"])
	assert.True(t, names["lookup"])
}
