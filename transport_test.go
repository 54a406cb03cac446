package canary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialListenTCPRoundTrip(t *testing.T) {
	ln, err := ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	root := NewRoute()
	require.NoError(t, root.AddServiceAt("echo", NewService("echo", struct{}{}, func(_ struct{}, ch *Channel, _ *Context) {
		payload, err := ch.ReceiveRaw()
		if err != nil {
			return
		}
		_ = ch.SendRaw(payload)
	})))

	go func() {
		ch, err := ln.Accept()
		if err != nil {
			return
		}
		IntroduceSpawning(ch, root)
	}()

	client, err := DialTCP(ln.Addr().String())
	require.NoError(t, err)

	require.NoError(t, Send(client, FormatBincode, "echo"))
	status, err := ReadStatus(client)
	require.NoError(t, err)
	require.Equal(t, StatusFound, status)

	require.NoError(t, Send(client, FormatBincode, "ping"))
	reply, err := Receive[string](client, FormatBincode)
	require.NoError(t, err)
	assert.Equal(t, "ping", reply)
}

func TestDialListenTCPWithoutNoise(t *testing.T) {
	ln, err := ListenTCP("127.0.0.1:0", WithNoise(false))
	require.NoError(t, err)
	defer ln.Close()

	root := NewRoute()
	require.NoError(t, root.AddServiceAt("echo", NewService("echo", struct{}{}, func(_ struct{}, ch *Channel, _ *Context) {
		payload, err := ch.ReceiveRaw()
		if err != nil {
			return
		}
		_ = ch.SendRaw(payload)
	})))

	go func() {
		ch, err := ln.Accept()
		if err != nil {
			return
		}
		IntroduceSpawning(ch, root)
	}()

	client, err := DialTCP(ln.Addr().String(), WithNoise(false))
	require.NoError(t, err)

	require.NoError(t, Send(client, FormatBincode, "echo"))
	status, err := ReadStatus(client)
	require.NoError(t, err)
	require.Equal(t, StatusFound, status)
}
