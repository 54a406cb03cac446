// Command canaryctl dials a canary service tree and sends a single
// message to a named service path, printing the echoed reply.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/atsika/canary"
)

func main() {
	network := flag.String("network", "tcp", "transport: tcp, unix, or ws")
	addr := flag.String("addr", "localhost:4433", "address to dial (path for unix, URL for ws)")
	path := flag.String("path", "echo", "service path to introduce")
	message := flag.String("message", "hello", "message to send")
	noNoise := flag.Bool("no-noise", false, "disable the Noise handshake")
	flag.Parse()

	opts := []canary.Option{canary.WithNoise(!*noNoise)}

	var (
		ch  *canary.Channel
		err error
	)
	switch *network {
	case "tcp":
		ch, err = canary.DialTCP(*addr, opts...)
	case "unix":
		ch, err = canary.DialUnix(*addr, opts...)
	case "ws":
		ch, err = canary.DialWS(*addr, opts...)
	default:
		log.Fatalf("canaryctl: unknown network %q", *network)
	}
	if err != nil {
		log.Fatalf("canaryctl: dial: %v", err)
	}

	if err := canary.Send(ch, canary.FormatBincode, *path); err != nil {
		log.Fatalf("canaryctl: send path: %v", err)
	}
	status, err := canary.ReadStatus(ch)
	if err != nil {
		log.Fatalf("canaryctl: read status: %v", err)
	}
	if status != canary.StatusFound {
		log.Fatalf("canaryctl: %q not found", *path)
	}

	if err := canary.Send(ch, canary.FormatBincode, *message); err != nil {
		log.Fatalf("canaryctl: send message: %v", err)
	}
	reply, err := canary.Receive[string](ch, canary.FormatBincode)
	if err != nil {
		log.Fatalf("canaryctl: receive reply: %v", err)
	}
	fmt.Println(reply)
}
