// Command canaryd runs a standalone canary service tree over TCP, Unix
// domain sockets, or WebSocket, registering a single echo service at
// "echo" for smoke-testing a deployment.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/atsika/canary"
)

func main() {
	network := flag.String("network", "tcp", "transport: tcp, unix, or ws")
	addr := flag.String("addr", ":4433", "address to listen on (path for unix)")
	noNoise := flag.Bool("no-noise", false, "disable the Noise handshake")
	flag.Parse()

	root := canary.GlobalRoute()
	echo := canary.NewService("echo", struct{}{}, func(_ struct{}, ch *canary.Channel, _ *canary.Context) {
		for {
			payload, err := ch.ReceiveRaw()
			if err != nil {
				return
			}
			if err := ch.SendRaw(payload); err != nil {
				return
			}
		}
	})
	if err := root.AddService(echo); err != nil {
		log.Fatalf("canaryd: register echo: %v", err)
	}

	opts := []canary.Option{canary.WithNoise(!*noNoise)}

	switch *network {
	case "tcp":
		ln, err := canary.ListenTCP(*addr, opts...)
		if err != nil {
			log.Fatalf("canaryd: %v", err)
		}
		defer ln.Close()
		fmt.Printf("canaryd: listening on tcp %s\n", ln.Addr())
		serveStream(ln, root)
	case "unix":
		ln, err := canary.ListenUnix(*addr, opts...)
		if err != nil {
			log.Fatalf("canaryd: %v", err)
		}
		defer ln.Close()
		fmt.Printf("canaryd: listening on unix %s\n", ln.Addr())
		serveStream(ln, root)
	case "ws":
		handler, err := canary.WSHandler(func(ch *canary.Channel) {
			canary.IntroduceSpawning(ch, root)
		}, opts...)
		if err != nil {
			log.Fatalf("canaryd: %v", err)
		}
		fmt.Printf("canaryd: listening on ws %s\n", *addr)
		log.Fatal(http.ListenAndServe(*addr, handler))
	default:
		log.Fatalf("canaryd: unknown network %q", *network)
	}
}

func serveStream(ln *canary.Listener, root *canary.Route) {
	for {
		ch, err := ln.Accept()
		if err != nil {
			log.Printf("canaryd: accept: %v", err)
			return
		}
		canary.IntroduceSpawning(ch, root)
	}
}
